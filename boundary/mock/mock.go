// mock仿真边界：不经过仿真器、直接向门控核心提供确定性或随机化检测器读数
// 的感知/执行接口替代实现，用于算法的独立验证
package mock

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/randengine"
)

// Program 已提交的信号配时程序
// 功能：记录一次ApplySplit提交的全部参数
type Program struct {
	MainGreen       float64
	SecondaryGreen  float64
	MainPhases      []int32
	SecondaryPhases []int32
}

// Boundary mock仿真边界
// 功能：同时实现感知接口与执行接口；读数来自预置序列或带种子的随机发生器
// 说明：提交的配时程序按信号灯ID保存，以相同参数重复提交不改变已提交状态（幂等）
type Boundary struct {
	series    map[string][]float64 // 预置读数序列，key为检测器ID
	cursor    int                  // 当前周期在序列中的下标
	generator *randengine.Engine   // 随机模式下的读数发生器（nil表示预置序列模式）
	baseline  map[string]float64   // 随机模式下各检测器的基准读数

	applied     map[string]Program // 已提交的配时程序，key为信号灯ID
	failSensing bool               // 下一次批量读取返回错误
	failApply   map[string]bool    // 指定信号灯的提交返回错误
}

// NewScripted 创建预置序列模式的mock边界
// 功能：按给定序列逐周期返回读数，序列耗尽后保持最后一个值
// 参数：series-各检测器的读数序列
func NewScripted(series map[string][]float64) *Boundary {
	return &Boundary{
		series:    series,
		applied:   make(map[string]Program),
		failApply: make(map[string]bool),
	}
}

// NewRandom 创建随机模式的mock边界
// 功能：围绕各检测器的基准读数生成可复现的随机读数序列
// 参数：seed-随机种子，baseline-各检测器的基准读数
// 说明：读数在基准值的[75%, 125%)范围内均匀抖动
func NewRandom(seed uint64, baseline map[string]float64) *Boundary {
	return &Boundary{
		generator: randengine.New(seed),
		baseline:  baseline,
		applied:   make(map[string]Program),
		failApply: make(map[string]bool),
	}
}

// ReadDetectors 批量读取检测器读数
// 功能：返回本周期全部已知检测器的读数，未知ID从结果中缺失
// 说明：整批成功或整批失败；每次调用推进一个周期
func (b *Boundary) ReadDetectors(ids []string) (map[string]float64, error) {
	// 每次调用对应一个控制周期，失败的周期同样推进序列
	defer func() { b.cursor++ }()
	if b.failSensing {
		b.failSensing = false
		return nil, fmt.Errorf("mock: sensing batch failed")
	}
	readings := make(map[string]float64, len(ids))
	for _, id := range ids {
		if b.generator != nil {
			if base, ok := b.baseline[id]; ok {
				readings[id] = base * b.generator.Uniform(0.75, 1.25)
			}
			continue
		}
		if s, ok := b.series[id]; ok && len(s) > 0 {
			readings[id] = s[lo.Clamp(b.cursor, 0, len(s)-1)]
		}
	}
	return readings, nil
}

// ApplySplit 提交一个交叉口的绿灯配时方案
// 功能：校验并保存提交的配时程序
// 说明：以相同参数重复提交产生与提交一次完全相同的已提交状态
func (b *Boundary) ApplySplit(trafficLightID string, mainGreen, secondaryGreen float64, mainPhases, secondaryPhases []int32) error {
	if b.failApply[trafficLightID] {
		return fmt.Errorf("mock: traffic light %s rejected split", trafficLightID)
	}
	if mainGreen < 0 || secondaryGreen < 0 {
		return fmt.Errorf("mock: negative green time (%f, %f) for traffic light %s", mainGreen, secondaryGreen, trafficLightID)
	}
	b.applied[trafficLightID] = Program{
		MainGreen:       mainGreen,
		SecondaryGreen:  secondaryGreen,
		MainPhases:      mainPhases,
		SecondaryPhases: secondaryPhases,
	}
	log.Debugf("apply split %s: main=%.1fs secondary=%.1fs", trafficLightID, mainGreen, secondaryGreen)
	return nil
}

// Applied 获取某信号灯已提交的配时程序
func (b *Boundary) Applied(trafficLightID string) (Program, bool) {
	p, ok := b.applied[trafficLightID]
	return p, ok
}

// AppliedPrograms 获取全部已提交的配时程序
func (b *Boundary) AppliedPrograms() map[string]Program {
	return b.applied
}

// FailNextSensing 使下一次批量读取失败（测试用）
func (b *Boundary) FailNextSensing() {
	b.failSensing = true
}

// SetApplyFailure 设置指定信号灯的提交是否失败（测试用）
func (b *Boundary) SetApplyFailure(trafficLightID string, fail bool) {
	b.failApply[trafficLightID] = fail
}
