package intersection

import (
	"fmt"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// Intersection管理器
type IntersectionManager struct {
	ctx entity.ITaskContext

	data          map[string]*Intersection
	intersections []*Intersection
}

// NewManager 创建Intersection管理器实例
// 功能：初始化交叉口管理器，创建内部数据结构
// 参数：ctx-任务上下文
// 返回：新创建的管理器实例
func NewManager(ctx entity.ITaskContext) *IntersectionManager {
	return &IntersectionManager{
		ctx:           ctx,
		data:          make(map[string]*Intersection),
		intersections: make([]*Intersection, 0),
	}
}

// Init 初始化所有交叉口
// 功能：根据配置初始化所有交叉口对象，建立ID映射关系
// 参数：cfgs-交叉口配置列表
func (m *IntersectionManager) Init(cfgs []config.Intersection) {
	m.intersections = parallel.GoMap(cfgs, func(cfg config.Intersection) *Intersection {
		return newIntersection(m.ctx, cfg)
	})
	m.data = lo.SliceToMap(m.intersections, func(i *Intersection) (string, *Intersection) {
		return i.id, i
	})
}

// Get 根据ID获取交叉口实例
// 功能：通过交叉口ID查找对应对象，如果不存在则panic
func (m *IntersectionManager) Get(id string) entity.IIntersection {
	if i, ok := m.data[id]; !ok {
		log.Panicf("no id %s in intersection data", id)
		return nil
	} else {
		return i
	}
}

// GetOrError 根据ID获取交叉口实例（带错误处理）
// 功能：通过交叉口ID查找对应对象，如果不存在则返回错误
func (m *IntersectionManager) GetOrError(id string) (entity.IIntersection, error) {
	if i, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %s in intersection data", id)
	} else {
		return i, nil
	}
}

// Intersections 获取全部交叉口（配置顺序）
func (m *IntersectionManager) Intersections() []entity.IIntersection {
	return lo.Map(m.intersections, func(i *Intersection, _ int) entity.IIntersection { return i })
}

// BudgetBounds 门控预算的可行范围
// 功能：由各交叉口能力推导聚合预算的[uMin, uMax]
// 返回：uMin=0（允许完全关闭边界），
// uMax=Σ 主流向饱和流率×入区比例×(周期长度-损失时间-次流向最小绿灯)
func (m *IntersectionManager) BudgetBounds() (float64, float64) {
	c := m.ctx.RuntimeConfig().C
	uMax := lo.SumBy(m.intersections, func(i *Intersection) float64 {
		return i.satFlows.Main * i.turnInRatios.Main * (i.cycleLength - c.LostTime - c.MinSecondaryGreen)
	})
	return 0, uMax
}

// Solve 分配聚合预算并求解所有交叉口
// 功能：将聚合预算按最大通过能力加权分到各交叉口，并行求解各自的绿灯分配
// 参数：u-聚合入区预算（辆/控制周期）
// 返回：各交叉口的求解结果（配置顺序）
// 说明：能力权重为saturation_flow_main×cycle_length，每周期在求解前计算一次；
// 单交叉口求解不可行时回退到其上一周期已提交方案并标记Fallback
func (m *IntersectionManager) Solve(u float64) []entity.SplitProposal {
	totalCapacity := lo.SumBy(m.intersections, func(i *Intersection) float64 { return i.Capacity() })
	return parallel.GoMap(m.intersections, func(i *Intersection) entity.SplitProposal {
		share := 0.0
		if totalCapacity > 0 {
			share = u * i.Capacity() / totalCapacity
		}
		split, err := i.solve(share)
		if err != nil {
			log.Warnf("intersection %s: %v, falling back to previous split (main=%.1fs secondary=%.1fs)",
				i.id, err, i.runtime.split.Main, i.runtime.split.Secondary)
			return entity.SplitProposal{Intersection: i, Split: i.runtime.split, Fallback: true}
		}
		return entity.SplitProposal{Intersection: i, Split: split}
	})
}

// Commit 提交求解结果
// 功能：将本周期的分配方案写入各交叉口的已提交状态
// 说明：仅在边界批量提交成功后调用，失败的周期不改变已提交方案
func (m *IntersectionManager) Commit(proposals []entity.SplitProposal) {
	for _, p := range proposals {
		m.data[p.Intersection.ID()].commit(p.Split)
	}
}
