package service

import (
	crand "crypto/rand"
	"encoding/hex"
	"io"
	"time"
)

// codeAlphabet 核销码字符集，排除 0/O/1/I 等易混淆字符
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	defaultCodeLength      = 8
	defaultCodeMaxAttempts = 5
	giftTokenBytes         = 16 // 128 bit
)

// IssuancePolicy 发放策略参数
type IssuancePolicy struct {
	EventClaimTTL   time.Duration // 活动领取默认持有有效期
	WalletClaimTTL  time.Duration // 卡包领取默认持有有效期
	GiftTokenTTL    time.Duration // 转赠令牌有效期
	CodeLength      int           // 核销码长度
	CodeMaxAttempts int           // 编码冲突重试上限
}

// DefaultIssuancePolicy 返回默认发放策略
func DefaultIssuancePolicy() IssuancePolicy {
	return IssuancePolicy{
		EventClaimTTL:   7 * 24 * time.Hour,
		WalletClaimTTL:  30 * 24 * time.Hour,
		GiftTokenTTL:    24 * time.Hour,
		CodeLength:      defaultCodeLength,
		CodeMaxAttempts: defaultCodeMaxAttempts,
	}
}

func (p IssuancePolicy) normalized() IssuancePolicy {
	if p.EventClaimTTL <= 0 {
		p.EventClaimTTL = 7 * 24 * time.Hour
	}
	if p.WalletClaimTTL <= 0 {
		p.WalletClaimTTL = 30 * 24 * time.Hour
	}
	if p.GiftTokenTTL <= 0 {
		p.GiftTokenTTL = 24 * time.Hour
	}
	if p.CodeLength <= 0 {
		p.CodeLength = defaultCodeLength
	}
	if p.CodeMaxAttempts <= 0 {
		p.CodeMaxAttempts = defaultCodeMaxAttempts
	}
	return p
}

// CodeGenerator 核销码与转赠令牌生成器，随机源可注入以便测试
type CodeGenerator struct {
	rand   io.Reader
	length int
}

// NewCodeGenerator 创建生成器，rand 为空时使用 crypto/rand
func NewCodeGenerator(length int, rand io.Reader) *CodeGenerator {
	if length <= 0 {
		length = defaultCodeLength
	}
	if rand == nil {
		rand = crand.Reader
	}
	return &CodeGenerator{rand: rand, length: length}
}

// NewCode 生成一个核销码
func (g *CodeGenerator) NewCode() (string, error) {
	buf := make([]byte, g.length)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}
	out := make([]byte, g.length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// NewGiftToken 生成一个转赠令牌（128 bit，hex 编码）
func (g *CodeGenerator) NewGiftToken() (string, error) {
	buf := make([]byte, giftTokenBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
