package intersection

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
)

// solve 求解一个交叉口的主/次绿灯分配
// 功能：在预算约束与最小绿灯下限之间选取主流向绿灯时间，余量分给次流向
// 参数：share-本交叉口分得的入区预算（辆/控制周期）
// 返回：满足周期长度不变式的分配方案与不可行错误
// 算法说明：
// 1. 预算约束：mainGreen*satMain*turnInMain不超过预算份额，据此得主绿灯上限
// 2. 上限收紧：主绿灯不超过 周期长度-损失时间-次流向最小绿灯
// 3. 排队容忍：若该主绿灯在容忍周期数内无法清空主流向排队，
//    则以牺牲次流向为代价上调主绿灯（优先级反转），最低保留次流向最小绿灯
// 4. 零排队平局：两个流向均无排队时沿用上一周期方案（保持执行稳定）
// 5. 变化量限制：配置了max_change时将主绿灯限制在上一方案±max_change内
// 6. 剩余时间：secondary = cycleLength - lostTime - mainGreen
// 边界情况：预算份额为零或为负（上游门控完全关闭）时主绿灯收缩到最小下限
func (i *Intersection) solve(share float64) (entity.Split, error) {
	c := i.ctx.RuntimeConfig().C
	available := i.cycleLength - c.LostTime
	if available < c.MinMainGreen+c.MinSecondaryGreen {
		// 配置校验会在启动时拒绝这种周期长度，这里兜底
		return entity.Split{}, &entity.InfeasibleSplit{
			IntersectionID: i.id,
			CycleLength:    i.cycleLength,
			Required:       c.LostTime + c.MinMainGreen + c.MinSecondaryGreen,
		}
	}
	capMain := available - c.MinSecondaryGreen
	prev := i.runtime.split
	q := i.runtime.queues

	admitRate := i.satFlows.Main * i.turnInRatios.Main

	var mainGreen float64
	if share <= 0 {
		// 上游门控完全关闭，主绿灯收缩到最小下限
		mainGreen = c.MinMainGreen
	} else {
		if admitRate > 0 {
			mainGreen = lo.Clamp(share/admitRate, c.MinMainGreen, capMain)
		} else {
			mainGreen = capMain
		}
		// 主流向排队在容忍周期数内必须可清空，否则优先级反转
		if q.Main > 0 && c.QueuePatience > 0 {
			patience := float64(c.QueuePatience)
			if mainGreen*i.satFlows.Main*patience < q.Main {
				needed := q.Main / (patience * i.satFlows.Main)
				biased := lo.Clamp(needed, mainGreen, capMain)
				log.Warnf("intersection %s: main queue %.0f not clearable within %d cycles, biasing main green %.1fs -> %.1fs",
					i.id, q.Main, c.QueuePatience, mainGreen, biased)
				mainGreen = biased
			}
		}
		// 两个流向均无排队时任何满足下限的方案都可接受，沿用上一方案保持稳定
		if q.Main == 0 && q.Secondary == 0 &&
			prev.Main >= c.MinMainGreen && prev.Main <= capMain && prev.Main*admitRate <= share {
			mainGreen = prev.Main
		}
	}

	if c.MaxChange > 0 {
		mainGreen = lo.Clamp(mainGreen, prev.Main-c.MaxChange, prev.Main+c.MaxChange)
		mainGreen = lo.Clamp(mainGreen, c.MinMainGreen, capMain)
	}

	return entity.Split{
		Main:      mainGreen,
		Secondary: available - mainGreen,
	}, nil
}
