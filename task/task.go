package task

import (
	"sync/atomic"

	"github.com/tsinghua-fib-lab/perimeter-gating/clock"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity/detector"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity/intersection"
	"github.com/tsinghua-fib-lab/perimeter-gating/gating"
	"github.com/tsinghua-fib-lab/perimeter-gating/recorder"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// CycleState 控制周期状态机状态
// 说明：IDLE → SENSING → ACTUATING → IDLE，每个控制间隔完整走一遍
type CycleState int32

const (
	StateIdle CycleState = iota
	StateSensing
	StateActuating
)

func (s CycleState) String() string {
	switch s {
	case StateSensing:
		return "SENSING"
	case StateActuating:
		return "ACTUATING"
	default:
		return "IDLE"
	}
}

// Context 门控任务上下文
// 功能：包含一次门控运行的所有变量和状态，替代全局变量
// 说明：唯一具有时间感知的组件；周期严格串行，周期k+1的感知
// 一定在周期k的执行提交完成之后才开始
type Context struct {
	// 关闭指令，仅在周期边界检查
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 仿真边界
	sensing   entity.ISensingBoundary
	actuation entity.IActuationBoundary

	// Intersection管理器
	intersectionManager entity.IIntersectionManager
	// Detector管理器
	detectorManager entity.IDetectorManager
	// 门控控制器
	controller *gating.Controller

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 周期记录器（可为nil）
	rec *recorder.Recorder

	// 周期状态机当前状态
	state CycleState
}

// NewContext 创建新的门控任务上下文
// 功能：校验配置并构建门控系统的所有组件
// 参数：
//   - c: 配置对象
//   - sensing: 感知边界实现
//   - actuation: 执行边界实现
//   - rec: 周期记录器，可为nil
//
// 返回：初始化完成的Context实例
// 说明：配置不一致属于启动期致命错误，运行不会开始
func NewContext(
	c config.Config,
	sensing entity.ISensingBoundary,
	actuation entity.IActuationBoundary,
	rec *recorder.Recorder,
) *Context {
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		log.Panicf("configuration error: %v", err)
	}
	ctx := &Context{
		sensing:   sensing,
		actuation: actuation,
		rec:       rec,
		state:     StateIdle,
	}
	ctx.runtimeConfig = config.NewRuntimeConfig(c)
	ctx.clock = clock.New(c.Control.Step)

	// 新建各类管理器
	ctx.intersectionManager = intersection.NewManager(ctx)
	ctx.detectorManager = detector.NewManager(ctx)

	return ctx
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) IntersectionManager() entity.IIntersectionManager {
	return ctx.intersectionManager
}

func (ctx *Context) DetectorManager() entity.IDetectorManager {
	return ctx.detectorManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Controller() *gating.Controller {
	return ctx.controller
}

// State 获取周期状态机的当前状态
func (ctx *Context) State() CycleState {
	return ctx.state
}

// Init 初始化所有组件
// 功能：加载配置数据，初始化交叉口注册表、检测器注册表与门控控制器
func (ctx *Context) Init() {
	ctx.clock.Init()

	c := ctx.runtimeConfig.All
	ctx.intersectionManager.Init(c.Intersections)
	ctx.detectorManager.Init(c.Detectors, ctx.intersectionManager)

	uMin, uMax := ctx.intersectionManager.BudgetBounds()
	ctx.controller = gating.New(ctx.runtimeConfig.G, uMin, uMax)

	log.Infof("Intersection: %v", len(c.Intersections))
	log.Infof("Detector: %v", len(ctx.detectorManager.IDs()))
	log.Infof("Budget bounds: [%.1f, %.1f] veh/cycle, target n=%.0f", uMin, uMax, ctx.runtimeConfig.G.TargetAccumulation)
}

// Close 请求停止运行
// 功能：设置关闭标志，运行循环在下一个周期边界退出
// 说明：周期内部没有取消语义
func (ctx *Context) Close() {
	ctx.closed.Store(true)
}
