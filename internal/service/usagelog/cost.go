package usagelog

import (
	"math"
	"strings"
)

// Price 模型单价，美元 / 百万 token
type Price struct {
	Input  float64
	Output float64
}

// defaultPrices 内置价格表
var defaultPrices = map[string]Price{
	"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
	"gpt-4o":        {Input: 2.50, Output: 10.00},
	"gpt-4.1-mini":  {Input: 0.40, Output: 1.60},
	"gpt-4.1":       {Input: 2.00, Output: 8.00},
	"deepseek-chat": {Input: 0.27, Output: 1.10},
	"qwen-plus":     {Input: 0.40, Output: 1.20},
	"qwen-turbo":    {Input: 0.05, Output: 0.20},
}

// Pricing 价格表，按最长前缀匹配模型名
type Pricing struct {
	prices map[string]Price
}

// NewPricing 创建价格表，overrides 覆盖或补充内置价格
func NewPricing(overrides map[string]Price) *Pricing {
	prices := make(map[string]Price, len(defaultPrices)+len(overrides))
	for k, v := range defaultPrices {
		prices[k] = v
	}
	for k, v := range overrides {
		prices[strings.ToLower(k)] = v
	}
	return &Pricing{prices: prices}
}

func (p *Pricing) lookup(model string) (Price, bool) {
	model = strings.ToLower(model)
	if price, ok := p.prices[model]; ok {
		return price, true
	}
	best := ""
	for k := range p.prices {
		if strings.HasPrefix(model, k) && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return Price{}, false
	}
	return p.prices[best], true
}

// EstimateCost 估算一次调用的费用，未知模型返回 false
func (p *Pricing) EstimateCost(model string, promptTokens, completionTokens int) (float64, bool) {
	price, ok := p.lookup(model)
	if !ok {
		return 0, false
	}
	cost := (float64(promptTokens)*price.Input + float64(completionTokens)*price.Output) / 1_000_000
	return math.Round(cost*1e6) / 1e6, true
}
