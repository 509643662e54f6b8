package config

import (
	"fmt"

	"github.com/samber/lo"
)

const (
	defaultKP            = 20.0 // 默认比例增益
	defaultKI            = 5.0  // 默认积分增益
	defaultInterval      = 90.0 // 默认控制间隔（秒）
	defaultLostTime      = 6.0  // 默认损失时间（秒）
	defaultMinGreen      = 15.0 // 默认最小绿灯时间（秒）
	defaultQueuePatience = 3    // 默认排队清空容忍周期数
)

// 次流向归约策略取值
const (
	PolicySum  = "sum"
	PolicyMax  = "max"
	PolicyMean = "mean"
)

// ValidationError 配置校验错误
// 功能：携带出错对象ID的配置错误，启动时致命，运行不会开始
type ValidationError struct {
	ID     string // 出错的交叉口或检测器ID，整体性错误时为空
	Reason string // 错误原因
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("config: %s: %s", e.ID, e.Reason)
	}
	return "config: " + e.Reason
}

// ApplyDefaults 填充默认值
// 功能：为未指定的配置项填充默认值
// 说明：PI增益默认20/5，控制间隔默认90秒，最小绿灯默认15秒，损失时间默认6秒
func (c *Config) ApplyDefaults() {
	if c.Gating.KP == 0 {
		c.Gating.KP = defaultKP
	}
	if c.Gating.KI == 0 {
		c.Gating.KI = defaultKI
	}
	if c.Control.Step.Interval == 0 {
		c.Control.Step.Interval = defaultInterval
	}
	if c.Control.LostTime == 0 {
		c.Control.LostTime = defaultLostTime
	}
	if c.Control.MinMainGreen == 0 {
		c.Control.MinMainGreen = defaultMinGreen
	}
	if c.Control.MinSecondaryGreen == 0 {
		c.Control.MinSecondaryGreen = defaultMinGreen
	}
	if c.Control.QueuePatience == 0 {
		c.Control.QueuePatience = defaultQueuePatience
	}
	for i := range c.Detectors.Queues {
		if c.Detectors.Queues[i].SecondaryPolicy == "" {
			c.Detectors.Queues[i].SecondaryPolicy = PolicySum
		}
	}
}

// Validate 配置校验
// 功能：检查配置的一致性，任何错误均为启动期致命错误
// 算法说明：
// 1. 控制参数检查：间隔、周期数、最小绿灯、容忍参数
// 2. 门控参数检查：目标累积量、迟滞阈值比例关系
// 3. 交叉口检查：ID唯一性、正饱和流率、入区比例范围、相位不相交、周期长度可容纳最小绿灯
// 4. 检测器检查：累积检测器非空且不重复、每个交叉口有排队绑定、归约策略合法、
//    同一检测器不得承担多个角色（重复引用会使过期计数偏离按周期计数）
func (c *Config) Validate() error {
	if c.Control.Step.Interval <= 0 {
		return &ValidationError{Reason: "control interval must be positive"}
	}
	if c.Control.Step.Total <= 0 {
		return &ValidationError{Reason: "control step total must be positive"}
	}
	if c.Control.MinMainGreen <= 0 || c.Control.MinSecondaryGreen <= 0 {
		return &ValidationError{Reason: "minimum green times must be positive"}
	}
	if c.Control.LostTime < 0 || c.Control.MaxChange < 0 || c.Control.QueuePatience < 0 {
		return &ValidationError{Reason: "lost time, max change and queue patience must be non-negative"}
	}

	g := c.Gating
	if g.TargetAccumulation <= 0 {
		return &ValidationError{Reason: "target accumulation must be positive"}
	}
	if g.KP < 0 || g.KI < 0 {
		return &ValidationError{Reason: "PI gains must be non-negative"}
	}
	if (g.ActivationRatio == 0) != (g.DeactivationRatio == 0) {
		return &ValidationError{Reason: "activation and deactivation ratios must be set together"}
	}
	if g.ActivationRatio != 0 {
		if g.ActivationRatio < 0 || g.ActivationRatio > 1 || g.DeactivationRatio < 0 || g.DeactivationRatio > 1 {
			return &ValidationError{Reason: "activation ratios must be within [0,1]"}
		}
		if g.DeactivationRatio >= g.ActivationRatio {
			return &ValidationError{Reason: "deactivation ratio must be below activation ratio"}
		}
	}

	if len(c.Intersections) == 0 {
		return &ValidationError{Reason: "no intersections configured"}
	}
	ids := lo.Map(c.Intersections, func(i Intersection, _ int) string { return i.ID })
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return &ValidationError{ID: dup[0], Reason: "duplicate intersection id"}
	}
	for _, i := range c.Intersections {
		if i.ID == "" {
			return &ValidationError{Reason: "intersection with empty id"}
		}
		if i.TrafficLightID == "" {
			return &ValidationError{ID: i.ID, Reason: "empty traffic_light_id"}
		}
		if i.CycleLength <= 0 {
			return &ValidationError{ID: i.ID, Reason: "cycle_length must be positive"}
		}
		if i.SaturationFlows.Main <= 0 || i.SaturationFlows.Secondary <= 0 {
			return &ValidationError{ID: i.ID, Reason: "saturation flows must be positive"}
		}
		for _, r := range []float64{i.TurnInRatios.Main, i.TurnInRatios.Secondary} {
			if r < 0 || r > 1 {
				return &ValidationError{ID: i.ID, Reason: "turn-in ratios must be within [0,1]"}
			}
		}
		if i.QueueLengths.Main < 0 || i.QueueLengths.Secondary < 0 {
			return &ValidationError{ID: i.ID, Reason: "initial queue lengths must be non-negative"}
		}
		if len(i.MainPhases) == 0 || len(i.SecondaryPhases) == 0 {
			return &ValidationError{ID: i.ID, Reason: "main and secondary phases must be non-empty"}
		}
		if shared := lo.Intersect(i.MainPhases, i.SecondaryPhases); len(shared) > 0 {
			return &ValidationError{ID: i.ID, Reason: fmt.Sprintf("main and secondary phases overlap at %v", shared)}
		}
		if i.CycleLength-c.Control.LostTime < c.Control.MinMainGreen+c.Control.MinSecondaryGreen {
			return &ValidationError{ID: i.ID, Reason: "cycle_length too short for minimum green times and lost time"}
		}
	}

	if len(c.Detectors.Accumulation) == 0 {
		return &ValidationError{Reason: "no accumulation detectors configured"}
	}
	if dup := lo.FindDuplicates(c.Detectors.Accumulation); len(dup) > 0 {
		return &ValidationError{ID: dup[0], Reason: "duplicate accumulation detector"}
	}
	bound := make(map[string]bool)
	for _, b := range c.Detectors.Queues {
		if !lo.Contains(ids, b.Intersection) {
			return &ValidationError{ID: b.Intersection, Reason: "queue binding references unknown intersection"}
		}
		if bound[b.Intersection] {
			return &ValidationError{ID: b.Intersection, Reason: "duplicate queue binding"}
		}
		bound[b.Intersection] = true
		if len(b.MainQueue) == 0 {
			return &ValidationError{ID: b.Intersection, Reason: "main queue detectors must be non-empty"}
		}
		switch b.SecondaryPolicy {
		case PolicySum, PolicyMax, PolicyMean:
		default:
			return &ValidationError{ID: b.Intersection, Reason: fmt.Sprintf("unknown secondary policy %q", b.SecondaryPolicy)}
		}
	}
	for _, id := range ids {
		if !bound[id] {
			return &ValidationError{ID: id, Reason: "intersection has no queue detector binding"}
		}
	}
	// 每个检测器只允许承担一个角色：同一检测器被多处引用会在一个周期内
	// 被读取多次，过期计数按周期计数的语义随之失效
	detectorIDs := make([]string, 0, len(c.Detectors.Accumulation))
	detectorIDs = append(detectorIDs, c.Detectors.Accumulation...)
	for _, b := range c.Detectors.Queues {
		detectorIDs = append(detectorIDs, b.MainQueue...)
		detectorIDs = append(detectorIDs, b.SecondaryQueue...)
	}
	if dup := lo.FindDuplicates(detectorIDs); len(dup) > 0 {
		return &ValidationError{ID: dup[0], Reason: "detector bound to multiple roles"}
	}
	return nil
}

// RuntimeConfig 运行时配置
// 功能：存储门控系统运行时的配置信息
// 说明：将YAML配置转换为运行时可用的配置对象，填充默认值后使用
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
	G   Gating  // 门控控制器配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，填充默认值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	config.ApplyDefaults()
	return &RuntimeConfig{
		All: config,
		C:   config.Control,
		G:   config.Gating,
	}
}
