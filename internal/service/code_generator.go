package service

import (
	crand "crypto/rand"
	"fmt"
	"strings"
	"time"
)

const (
	// 字母表排除易混淆字符 0/O/1/I，共 32 个符号
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codePrefix        = "SHF"
	codeGroupSize     = 4
	codeBatchNoPrefix = "UCB"
)

// CodeGenerator 兑换码生成器
// 唯一性以存储层唯一索引为最终裁决，生成阶段只做批内去重。
type CodeGenerator struct{}

// NewCodeGenerator 创建兑换码生成器
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate 生成单个兑换码，格式 SHF-XXXX-XXXX
func (g *CodeGenerator) Generate() (string, error) {
	first, err := randomCodeGroup(codeGroupSize)
	if err != nil {
		return "", err
	}
	second, err := randomCodeGroup(codeGroupSize)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", codePrefix, first, second), nil
}

// GenerateSet 生成批内不重复的兑换码集合
func (g *CodeGenerator) GenerateSet(quantity int) ([]string, error) {
	if quantity <= 0 {
		return []string{}, nil
	}
	seen := make(map[string]struct{}, quantity)
	codes := make([]string, 0, quantity)
	for len(codes) < quantity {
		code, err := g.Generate()
		if err != nil {
			return nil, err
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// randomCodeGroup 从字母表取 n 个随机符号
// 字母表长度 32 整除 256，按字节取模不引入偏差。
func randomCodeGroup(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	builder := strings.Builder{}
	builder.Grow(n)
	for _, b := range buf {
		builder.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return builder.String(), nil
}

func generateCodeBatchNo(now time.Time) string {
	suffix, err := randomCodeGroup(4)
	if err != nil {
		suffix = "0000"
	}
	return strings.ToUpper(fmt.Sprintf("%s%s%s", codeBatchNoPrefix, now.Format("20060102150405"), suffix))
}
