// 检测器聚合：把每周期的原始检测器读数归约为区域累积量与各交叉口排队长度
package detector

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
	"gonum.org/v1/gonum/stat"
)

// state 单个检测器的运行时状态
// 功能：维护最后一次有效读数与连续过期周期数
type state struct {
	lastValue  float64 // 最后一次有效读数
	staleCount int     // 连续过期周期数
}

// binding 一个交叉口的排队检测器绑定
type binding struct {
	intersectionID string
	main           []string
	secondary      []string
	policy         string // 次流向归约策略，配置中固定
}

// DetectorManager 检测器管理器
// 功能：持有检测器注册表与过期状态，执行每周期的归约
type DetectorManager struct {
	ctx entity.ITaskContext

	accumulation []string
	bindings     []binding
	states       map[string]*state
	ids          []string
}

// NewManager 创建检测器管理器实例
func NewManager(ctx entity.ITaskContext) *DetectorManager {
	return &DetectorManager{
		ctx:    ctx,
		states: make(map[string]*state),
	}
}

// Init 初始化检测器注册表
// 功能：根据配置建立检测器状态表与交叉口绑定
// 参数：cfg-检测器配置，intersections-交叉口管理器
// 说明：未知检测器ID在启动期配置校验中已被拒绝；排队检测器的初始
// 最后读数按所属交叉口配置的初始排队长度均摊，首次量测前即有有界默认值
func (m *DetectorManager) Init(cfg config.Detectors, intersections entity.IIntersectionManager) {
	m.accumulation = cfg.Accumulation
	m.bindings = lo.Map(cfg.Queues, func(b config.QueueBinding, _ int) binding {
		return binding{
			intersectionID: b.Intersection,
			main:           b.MainQueue,
			secondary:      b.SecondaryQueue,
			policy:         b.SecondaryPolicy,
		}
	})

	ids := make([]string, 0, len(cfg.Accumulation))
	ids = append(ids, cfg.Accumulation...)
	for _, d := range m.accumulation {
		m.states[d] = &state{}
	}
	for _, b := range m.bindings {
		q := intersections.Get(b.intersectionID).Queues()
		for _, d := range b.main {
			m.states[d] = &state{lastValue: q.Main / float64(len(b.main))}
			ids = append(ids, d)
		}
		for _, d := range b.secondary {
			m.states[d] = &state{lastValue: q.Secondary / float64(len(b.secondary))}
			ids = append(ids, d)
		}
	}
	m.ids = lo.Uniq(ids)
}

// IDs 获取全部配置的检测器ID
// 说明：编排器每个控制周期据此向感知接口请求一次批量读取
func (m *DetectorManager) IDs() []string {
	return m.ids
}

// read 读取单个检测器的本周期取值
// 功能：取本周期读数并重置过期计数；读数缺失或越界时以最后有效值代替
// 返回：本周期取值与升级后的传感故障
// 说明：同一检测器连续两个周期过期升级为运行级致命错误
func (m *DetectorManager) read(id string, readings map[string]float64) (float64, error) {
	st := m.states[id]
	if v, ok := readings[id]; ok && v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		st.lastValue = v
		st.staleCount = 0
		return v, nil
	}
	st.staleCount++
	if st.staleCount >= 2 {
		return 0, &entity.SensorFault{DetectorID: id, Consecutive: st.staleCount}
	}
	log.Warnf("detector %s unavailable, holding last value %.1f", id, st.lastValue)
	return st.lastValue, nil
}

// Aggregate 执行一次归约
// 功能：把原始读数归约为区域累积量与各交叉口排队长度
// 参数：readings-本周期的原始读数（批量失败时可为nil，全部按过期处理）
// 返回：区域累积量n、各交叉口排队长度与错误
// 算法说明：
// 1. 区域累积量为全部累积检测器读数之和（每个检测器恰好计入一次）
// 2. 主流向排队为其主排队检测器读数之和
// 3. 次流向排队按配置固定的策略归约（sum求和|max取最大|mean取均值）
// 4. 任一检测器连续两个周期过期时返回传感故障，整周期失败
// 说明：归约本身无状态，周期间仅保留最后读数与过期计数
func (m *DetectorManager) Aggregate(readings map[string]float64) (float64, map[string]entity.Queues, error) {
	n := 0.0
	for _, id := range m.accumulation {
		v, err := m.read(id, readings)
		if err != nil {
			return 0, nil, err
		}
		n += v
	}

	queues := make(map[string]entity.Queues, len(m.bindings))
	for _, b := range m.bindings {
		mainQ := 0.0
		for _, id := range b.main {
			v, err := m.read(id, readings)
			if err != nil {
				return 0, nil, err
			}
			mainQ += v
		}
		secValues := make([]float64, 0, len(b.secondary))
		for _, id := range b.secondary {
			v, err := m.read(id, readings)
			if err != nil {
				return 0, nil, err
			}
			secValues = append(secValues, v)
		}
		queues[b.intersectionID] = entity.Queues{
			Main:      mainQ,
			Secondary: reduce(secValues, b.policy),
		}
	}
	return n, queues, nil
}

// reduce 按固定策略归约次流向读数
func reduce(values []float64, policy string) float64 {
	if len(values) == 0 {
		return 0
	}
	switch policy {
	case config.PolicyMax:
		return lo.Max(values)
	case config.PolicyMean:
		return stat.Mean(values, nil)
	default:
		return lo.Sum(values)
	}
}
