package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"estatehub-http-service/internal/domain/models"
)

const (
	orderSheet     = "Orders"
	orderItemSheet = "Order Items"
)

var (
	orderHeaders     = []string{"ID", "Order Number", "Household ID", "User ID", "Status", "Delivery Type", "Scheduled Time", "Total Amount", "Items", "Ordered At"}
	orderItemHeaders = []string{"Order Number", "Menu Item ID", "Name", "Quantity", "Unit Price", "Subtotal"}
)

// 11 ExportOrders 按可见范围导出订单为 xlsx
func (s *CateringService) ExportOrders(actorID uint, filter OrderFilter) ([]byte, error) {
	query, err := s.scopedOrders(actorID, filter)
	if err != nil {
		return nil, err
	}
	var orders []models.CateringOrder
	if err := query.Preload("Items").Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return buildOrderWorkbook(orders)
}

func buildOrderWorkbook(orders []models.CateringOrder) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(orderSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(orderItemSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, orderSheet, 1, toCells(orderHeaders), headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRow(f, orderItemSheet, 1, toCells(orderItemHeaders), headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	itemRow := 2
	for i, o := range orders {
		scheduled := ""
		if o.ScheduledTime != nil {
			scheduled = o.ScheduledTime.Format(time.RFC3339)
		}
		row := []interface{}{o.ID, o.OrderNumber, o.HouseholdID, o.UserID, o.Status, o.DeliveryType,
			scheduled, o.TotalAmount, len(o.Items), o.CreatedAt.Format(time.RFC3339)}
		if err := writeRow(f, orderSheet, i+2, row, 0); err != nil {
			f.Close()
			return nil, err
		}
		for _, it := range o.Items {
			cells := []interface{}{o.OrderNumber, it.MenuItemID, it.Name, it.Quantity, it.UnitPrice, it.Subtotal}
			if err := writeRow(f, orderItemSheet, itemRow, cells, 0); err != nil {
				f.Close()
				return nil, err
			}
			itemRow++
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// writeRow 写入一行；style 为 0 时不设置样式
func writeRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}
