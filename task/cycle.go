package task

import (
	"flag"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/recorder"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 10, "心跳日志间隔周期数")
)

// prepare 准备阶段，每个控制周期执行一次
// 功能：推进时钟并定期输出心跳日志
// 说明：心跳间隔为非正数时不输出心跳
func (ctx *Context) prepare() {
	ctx.clock.Advance()
	if *heartBeatInterval > 0 && ctx.clock.K%int32(*heartBeatInterval) == 0 {
		log.Infof("CYCLE: %d(%s)", ctx.clock.K, ctx.clock)
	}
}

// RunCycle 运行一个控制周期
// 功能：执行一次完整的SENSING→ACTUATING状态机遍历
// 参数：simTime-当前仿真时间（秒），用于周期记录
// 返回：运行级错误；周期内可恢复的故障已在内部处理并返回nil
// 算法说明：
// 1. SENSING：从仿真边界批量读取检测器，运行聚合器得到累积量与排队长度
// 2. 批量读取失败时全部检测器按过期处理（沿用上次读数），连续两个周期后升级为致命错误
// 3. 累积量为负或非有限时本周期不动作，沿用上一周期已提交方案（fail-safe）
// 4. ACTUATING：刷新各交叉口排队状态，更新迟滞激活状态；
//    未激活时仅记录误差并保持方案；激活时运行门控控制器得到聚合预算，
//    按能力加权分配并逐交叉口求解，最后把方案批量提交到仿真边界
// 5. 任一提交失败即为执行故障，周期内不重试，整个运行终止
// 说明：所有对控制器状态与交叉口记录的写入都发生在ACTUATING阶段内
func (ctx *Context) RunCycle(simTime float64) error {
	ctx.state = StateSensing
	defer func() { ctx.state = StateIdle }()

	readings, err := ctx.sensing.ReadDetectors(ctx.detectorManager.IDs())
	if err != nil {
		log.Warnf("cycle %d: sensing batch failed, treating all detectors as stale: %v", ctx.clock.K, err)
		readings = nil
	}
	n, queues, err := ctx.detectorManager.Aggregate(readings)
	if err != nil {
		// 连续过期升级，运行级致命错误
		return err
	}

	ctx.state = StateActuating
	for id, q := range queues {
		ctx.intersectionManager.Get(id).SetQueues(q)
	}

	if !ctx.controller.UpdateActivation(n) {
		if err := ctx.controller.Observe(n); err != nil {
			log.Warnf("cycle %d: %v (n=%f), holding previous splits", ctx.clock.K, err, n)
			return nil
		}
		ctx.record(simTime, n, ctx.controller.State().PrevOutput, nil)
		return nil
	}

	u, err := ctx.controller.Step(n)
	if err != nil {
		// 传感数据不可信，本周期沿用上一周期方案，不做任何执行
		log.Warnf("cycle %d: %v (n=%f), holding previous splits", ctx.clock.K, err, n)
		return nil
	}

	proposals := ctx.intersectionManager.Solve(u)
	for _, p := range proposals {
		i := p.Intersection
		if err := ctx.actuation.ApplySplit(
			i.TrafficLightID(), p.Split.Main, p.Split.Secondary,
			i.MainPhases(), i.SecondaryPhases(),
		); err != nil {
			return &entity.ActuationFault{TrafficLightID: i.TrafficLightID(), Err: err}
		}
	}
	ctx.intersectionManager.Commit(proposals)
	ctx.record(simTime, n, u, proposals)
	return nil
}

// record 写入本周期记录
// 功能：把周期量测、控制量与各交叉口方案写入记录器
// 参数：proposals为nil时（未激活周期）按各交叉口当前已提交方案记录
func (ctx *Context) record(simTime, n, u float64, proposals []entity.SplitProposal) {
	if ctx.rec == nil {
		return
	}
	if proposals == nil {
		proposals = lo.Map(ctx.intersectionManager.Intersections(), func(i entity.IIntersection, _ int) entity.SplitProposal {
			return entity.SplitProposal{Intersection: i, Split: i.Split()}
		})
	}
	splits := lo.Map(proposals, func(p entity.SplitProposal, _ int) recorder.SplitRecord {
		i := p.Intersection
		q := i.Queues()
		return recorder.SplitRecord{
			ID:             i.ID(),
			TrafficLightID: i.TrafficLightID(),
			MainGreen:      p.Split.Main,
			SecondaryGreen: p.Split.Secondary,
			MainQueue:      q.Main,
			SecondaryQueue: q.Secondary,
			Fallback:       p.Fallback,
		}
	})
	ctx.rec.Record(recorder.CycleRecord{
		Cycle:  ctx.clock.K,
		T:      simTime,
		N:      n,
		Error:  ctx.controller.Target() - n,
		U:      u,
		Active: ctx.controller.Active(),
		Splits: splits,
	})
}

// Run 运行
// 功能：在配置的控制区间内逐周期驱动状态机，直到区间结束或收到停止指令
// 说明：周期严格串行，停止指令仅在周期边界检查；
// 任何运行级错误（传感升级、执行故障）都会带诊断信息终止运行
func (ctx *Context) Run() {
	// 初始化
	ctx.Init()
	for !ctx.clock.Done() {
		ctx.prepare()
		if err := ctx.RunCycle(ctx.clock.T); err != nil {
			log.Errorf("cycle %d failed: %v", ctx.clock.K, err)
			break
		}
		if ctx.closed.Load() {
			break
		}
	}
	ctx.rec.Close()
	log.Infof("perimeter gating complete")
}
