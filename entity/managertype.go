package entity

import "github.com/tsinghua-fib-lab/perimeter-gating/utils/config"

// Manager依赖倒置

// entity/intersection/manager.go的依赖倒置
type IIntersectionManager interface {
	Init(cfgs []config.Intersection) // 初始化

	// 输入交叉口ID，查找交叉口，如果不存在则panic
	Get(id string) IIntersection
	// 输入交叉口ID，查找交叉口，如果不存在则返回error
	GetOrError(id string) (IIntersection, error)
	// 全部交叉口（配置顺序）
	Intersections() []IIntersection

	// 门控预算的可行范围[uMin, uMax]（辆/控制周期）
	BudgetBounds() (float64, float64)
	// 将聚合预算按能力加权分配到各交叉口并逐个求解绿灯分配
	Solve(u float64) []SplitProposal
	// 提交求解结果，更新各交叉口的已提交方案
	Commit(proposals []SplitProposal)
}

// entity/detector/manager.go的依赖倒置
type IDetectorManager interface {
	Init(cfg config.Detectors, intersections IIntersectionManager) // 初始化

	// 全部配置的检测器ID（每周期向感知接口请求一次）
	IDs() []string
	// 将原始读数归约为区域累积量与各交叉口排队长度
	Aggregate(readings map[string]float64) (n float64, queues map[string]Queues, err error)
}
