package processor

import (
	"ChurnInsight/src/config"
	"fmt"
)

// Tristate 业务开通状态，在数据导入时一次性解析
type Tristate int

const (
	Unknown Tristate = iota // 不适用或缺失，如 "No internet service"
	Subscribed
	NotSubscribed
)

func (s Tristate) String() string {
	switch s {
	case Subscribed:
		return "Subscribed"
	case NotSubscribed:
		return "NotSubscribed"
	default:
		return "Unknown"
	}
}

// CustomerRecord 客户记录
type CustomerRecord struct {
	ID         string
	Features   map[string]Tristate
	Attributes map[string]string // 用于分群的类别属性
	Churned    bool
}

// Feature 返回业务开通状态，不存在的业务视为 Unknown
func (r CustomerRecord) Feature(name string) Tristate {
	return r.Features[name]
}

// Attribute 返回类别属性，不存在时返回空串
func (r CustomerRecord) Attribute(name string) string {
	return r.Attributes[name]
}

// ChurnPredicate 决定一条记录在本次计算中是否计为流失
type ChurnPredicate func(CustomerRecord) bool

// ChurnedLabel 以原始流失标签为准
func ChurnedLabel(r CustomerRecord) bool { return r.Churned }

// RetainedLabel 反转标签，统计留存客户
func RetainedLabel(r CustomerRecord) bool { return !r.Churned }

const (
	DefinitionLabel    = config.ChurnDefinitionLabel
	DefinitionInverted = config.ChurnDefinitionInverted
)

func PredicateFor(definition string) (ChurnPredicate, error) {
	switch definition {
	case DefinitionLabel:
		return ChurnedLabel, nil
	case DefinitionInverted:
		return RetainedLabel, nil
	default:
		return nil, fmt.Errorf("未知的流失口径: %q", definition)
	}
}
