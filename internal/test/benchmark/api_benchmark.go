//go:build benchmark

package benchmark

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIBenchmark 针对运行中服务的并发压测
type APIBenchmark struct {
	Concurrency int
	Requests    int
	client      *resty.Client
}

// BenchmarkResult 压测结果
type BenchmarkResult struct {
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	P95Time        time.Duration `json:"p95_time"`
	MaxTime        time.Duration `json:"max_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	Errors         []string      `json:"errors"`
}

type requestResult struct {
	duration   time.Duration
	statusCode int
	err        error
}

// NewAPIBenchmark 创建压测实例；authToken 为空时不带认证头
func NewAPIBenchmark(baseURL string, concurrency, requests int, authToken string) *APIBenchmark {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	if authToken != "" {
		client.SetAuthToken(authToken)
	}
	return &APIBenchmark{Concurrency: concurrency, Requests: requests, client: client}
}

// Run 对 method+path 发起 Requests 次请求，最多 Concurrency 个并发
func (b *APIBenchmark) Run(method, path string, body interface{}) *BenchmarkResult {
	results := make(chan requestResult, b.Requests)
	var wg sync.WaitGroup
	limiter := make(chan struct{}, b.Concurrency)

	startTime := time.Now()
	for i := 0; i < b.Requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			req := b.client.R()
			if body != nil {
				req.SetBody(body)
			}
			resp, err := req.Execute(method, path)
			if err != nil {
				results <- requestResult{err: err}
				return
			}
			results <- requestResult{duration: resp.Time(), statusCode: resp.StatusCode()}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	result := &BenchmarkResult{
		URL:           b.client.BaseURL + path,
		Method:        method,
		Concurrency:   b.Concurrency,
		TotalRequests: b.Requests,
		StatusCodes:   make(map[int]int),
	}
	var durations []time.Duration
	var total time.Duration
	for r := range results {
		if r.err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, r.err.Error())
			continue
		}
		durations = append(durations, r.duration)
		total += r.duration
		result.StatusCodes[r.statusCode]++
		if r.statusCode >= 200 && r.statusCode < 300 {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}

	result.TotalTime = time.Since(startTime)
	result.RequestsPerSec = float64(b.Requests) / result.TotalTime.Seconds()
	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		result.AverageTime = total / time.Duration(len(durations))
		p95 := len(durations) * 95 / 100
		if p95 >= len(durations) {
			p95 = len(durations) - 1
		}
		result.P95Time = durations[p95]
		result.MaxTime = durations[len(durations)-1]
	}
	return result
}

// SuccessRate 成功率（百分比）
func (r *BenchmarkResult) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.TotalRequests) * 100
}

// PrintResult 打印压测结果
func (r *BenchmarkResult) PrintResult() {
	fmt.Printf("%s %s 并发=%d 请求=%d 成功=%d 失败=%d\n",
		r.Method, r.URL, r.Concurrency, r.TotalRequests, r.SuccessCount, r.FailureCount)
	fmt.Printf("  总耗时=%s 平均=%s P95=%s 最大=%s QPS=%.2f\n",
		r.TotalTime, r.AverageTime, r.P95Time, r.MaxTime, r.RequestsPerSec)
	for code, count := range r.StatusCodes {
		fmt.Printf("  %d: %d\n", code, count)
	}
	for i, err := range r.Errors {
		if i >= 5 {
			fmt.Printf("  ... 还有 %d 个错误\n", len(r.Errors)-5)
			break
		}
		fmt.Printf("  %s\n", err)
	}
}
