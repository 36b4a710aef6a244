package utils

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
)

// 邀请码字符集，去掉易混淆的 0/O/1/I
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomCode 生成长度为 n 的随机邀请码
func RandomCode(n int) string {
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("generate random code failed")
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out)
}

// RandomRoomNumber 生成TRTC数字房间号 (1..2^31-1)
func RandomRoomNumber() uint32 {
	var num uint32
	if err := binary.Read(rand.Reader, binary.BigEndian, &num); err != nil {
		panic("generate random room number failed")
	}
	num &= 0x7fffffff
	if num == 0 {
		num = 1
	}
	return num
}
