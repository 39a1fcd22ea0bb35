package metrics

// Label 指标标签，为指标添加维度
//
// 熔断器使用的标签：breaker（熔断器名称）、result（success/failure/ignored/rejected/bypassed）、
// from_state / to_state（状态变更）。
//
// 标签值应保持低基数，不要把请求 ID 之类的值作为标签。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("breaker", "mysql_primary"), metrics.L("result", "rejected"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
