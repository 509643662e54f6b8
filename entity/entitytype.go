package entity

import "fmt"

// Queues 一个交叉口的主/次流向排队长度（辆）
type Queues struct {
	Main      float64
	Secondary float64
}

// Split 一个交叉口的绿灯时间分配方案（秒）
// 说明：Main + Secondary + 固定损失时间 == 周期长度，每个周期均成立
type Split struct {
	Main      float64
	Secondary float64
}

// SplitProposal 一个周期内单个交叉口的求解结果
// 功能：携带求解出的分配方案与是否发生了回退
type SplitProposal struct {
	Intersection IIntersection
	Split        Split
	Fallback     bool // true表示求解不可行，沿用了上一周期的已提交方案
}

// IIntersection 边界交叉口接口
// 功能：不可变配置记录与独立持有的可变运行时（排队长度、已提交方案）的读写入口
type IIntersection interface {
	ID() string
	TrafficLightID() string
	CycleLength() float64
	MainPhases() []int32
	SecondaryPhases() []int32
	SaturationFlowMain() float64
	// 最大通过能力（主流向饱和流率×周期长度），用于预算的能力加权分配
	Capacity() float64

	// 最新观测的排队长度，每个控制周期由检测器聚合结果刷新
	Queues() Queues
	SetQueues(q Queues)
	// 上一周期已提交的绿灯时间方案
	Split() Split
}

// SensorFault 检测器故障
// 功能：检测器读取失败或返回越界值
// 说明：首次故障以上一次读数代替并标记过期，同一检测器连续两个周期故障升级为运行级致命错误
type SensorFault struct {
	DetectorID  string // 故障检测器ID
	Consecutive int    // 连续故障周期数
}

func (e *SensorFault) Error() string {
	return fmt.Sprintf("sensor fault: detector %s stale for %d consecutive cycles", e.DetectorID, e.Consecutive)
}

// InfeasibleSplit 不可行的绿灯分配
// 功能：求解器无法同时满足预算约束与最小绿灯下限
// 说明：按优先级反转偏置规则处理后仍不可行时回退到上一周期方案，仅作为警告
type InfeasibleSplit struct {
	IntersectionID string  // 交叉口ID
	CycleLength    float64 // 周期长度
	Required       float64 // 最小需求时间（损失时间+最小绿灯之和）
}

func (e *InfeasibleSplit) Error() string {
	return fmt.Sprintf("infeasible split: intersection %s cycle %.0fs cannot fit %.0fs", e.IntersectionID, e.CycleLength, e.Required)
}

// ActuationFault 执行故障
// 功能：仿真边界拒绝或未能应用已提交的方案
// 说明：周期内不重试（过期的配时会与仿真器时钟失步），终止运行
type ActuationFault struct {
	TrafficLightID string // 信号灯ID
	Err            error  // 边界返回的底层错误
}

func (e *ActuationFault) Error() string {
	return fmt.Sprintf("actuation fault: traffic light %s: %v", e.TrafficLightID, e.Err)
}

func (e *ActuationFault) Unwrap() error {
	return e.Err
}
