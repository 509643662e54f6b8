package intersection

import (
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// runtime 交叉口可变运行时数据
// 功能：与不可变配置分开持有的周期级状态
// 说明：queues每周期由检测器聚合结果刷新，split为上一周期已提交的方案
type runtime struct {
	queues entity.Queues // 最新观测排队长度
	split  entity.Split  // 已提交的绿灯分配方案
}

// Intersection 边界交叉口
// 功能：一个受控边界交叉口的不可变配置记录与可变运行时
// 说明：启动时从配置加载一次，固定拓扑，运行期间不销毁
type Intersection struct {
	ctx entity.ITaskContext

	id              string
	trafficLightID  string
	cycleLength     float64
	mainPhases      []int32
	secondaryPhases []int32
	satFlows        config.StreamValue
	turnInRatios    config.StreamValue

	runtime runtime
}

// newIntersection 创建并初始化一个新的Intersection实例
// 功能：根据配置创建交叉口对象，排队长度取配置的初始默认值
// 参数：ctx-任务上下文，base-交叉口配置
// 返回：初始化完成的Intersection实例
// 说明：首个周期前的已提交方案取可用绿灯时间的均分（与首次量测前的排队默认值同理）
func newIntersection(ctx entity.ITaskContext, base config.Intersection) *Intersection {
	available := base.CycleLength - ctx.RuntimeConfig().C.LostTime
	return &Intersection{
		ctx:             ctx,
		id:              base.ID,
		trafficLightID:  base.TrafficLightID,
		cycleLength:     base.CycleLength,
		mainPhases:      base.MainPhases,
		secondaryPhases: base.SecondaryPhases,
		satFlows:        base.SaturationFlows,
		turnInRatios:    base.TurnInRatios,
		runtime: runtime{
			queues: entity.Queues{Main: base.QueueLengths.Main, Secondary: base.QueueLengths.Secondary},
			split:  entity.Split{Main: available / 2, Secondary: available / 2},
		},
	}
}

func (i *Intersection) ID() string {
	return i.id
}

func (i *Intersection) TrafficLightID() string {
	return i.trafficLightID
}

func (i *Intersection) CycleLength() float64 {
	return i.cycleLength
}

func (i *Intersection) MainPhases() []int32 {
	return i.mainPhases
}

func (i *Intersection) SecondaryPhases() []int32 {
	return i.secondaryPhases
}

func (i *Intersection) SaturationFlowMain() float64 {
	return i.satFlows.Main
}

// Capacity 最大通过能力
// 功能：返回主流向饱和流率×周期长度，用于聚合预算的能力加权分配
func (i *Intersection) Capacity() float64 {
	return i.satFlows.Main * i.cycleLength
}

func (i *Intersection) Queues() entity.Queues {
	return i.runtime.queues
}

// SetQueues 刷新排队长度
// 说明：每个控制周期由检测器聚合结果写入一次，写入仅发生在执行阶段
func (i *Intersection) SetQueues(q entity.Queues) {
	i.runtime.queues = q
}

// Split 上一周期已提交的绿灯分配方案
func (i *Intersection) Split() entity.Split {
	return i.runtime.split
}

// commit 写入已提交方案
// 说明：仅在执行阶段、边界批量提交成功后调用
func (i *Intersection) commit(s entity.Split) {
	i.runtime.split = s
}
