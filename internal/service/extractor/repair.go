package extractor

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// repairArguments 修复模型返回的工具参数
// 先尝试截取 JSON 对象区域，仍无效时交给 jsonrepair
func repairArguments(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "{}", true
	}
	if json.Valid([]byte(s)) {
		return s, false
	}

	// 去掉 markdown 代码块
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	i := strings.IndexByte(s, '{')
	j := strings.LastIndexByte(s, '}')
	if i >= 0 && j > i {
		if sub := s[i : j+1]; json.Valid([]byte(sub)) {
			return sub, true
		}
	}

	out, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s, true
	}
	return out, true
}
