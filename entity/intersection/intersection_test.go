package intersection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/perimeter-gating/clock"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity/intersection"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// testCtx 仅提供运行时配置的任务上下文测试替身
type testCtx struct {
	rc *config.RuntimeConfig
}

func (c *testCtx) Clock() *clock.Clock                              { return nil }
func (c *testCtx) IntersectionManager() entity.IIntersectionManager { return nil }
func (c *testCtx) DetectorManager() entity.IDetectorManager         { return nil }
func (c *testCtx) RuntimeConfig() *config.RuntimeConfig             { return c.rc }

func newTestCtx(control config.Control) *testCtx {
	return &testCtx{rc: &config.RuntimeConfig{C: control}}
}

func defaultControl() config.Control {
	return config.Control{
		LostTime:          6,
		MinMainGreen:      15,
		MinSecondaryGreen: 15,
		QueuePatience:     3,
	}
}

func newIntersectionConfig(id string) config.Intersection {
	return config.Intersection{
		ID:              id,
		TrafficLightID:  "tl_" + id,
		CycleLength:     90,
		MainPhases:      []int32{0},
		SecondaryPhases: []int32{2},
		SaturationFlows: config.StreamValue{Main: 0.5, Secondary: 0.4},
		TurnInRatios:    config.StreamValue{Main: 1.0, Secondary: 0.5},
		QueueLengths:    config.StreamValue{Main: 10, Secondary: 5},
	}
}

func newManager(t *testing.T, control config.Control, cfgs ...config.Intersection) *intersection.IntersectionManager {
	m := intersection.NewManager(newTestCtx(control))
	m.Init(cfgs)
	require.Len(t, m.Intersections(), len(cfgs))
	return m
}

func TestManagerGet(t *testing.T) {
	m := newManager(t, defaultControl(), newIntersectionConfig("a"), newIntersectionConfig("b"))

	i := m.Get("a")
	assert.Equal(t, "a", i.ID())
	assert.Equal(t, "tl_a", i.TrafficLightID())
	assert.Equal(t, 90.0, i.CycleLength())
	assert.Equal(t, 0.5*90, i.Capacity())
	assert.Equal(t, entity.Queues{Main: 10, Secondary: 5}, i.Queues())

	_, err := m.GetOrError("missing")
	assert.NotNil(t, err)
	assert.Panics(t, func() { m.Get("missing") })
}

func TestCycleLengthInvariant(t *testing.T) {
	control := defaultControl()
	m := newManager(t, control, newIntersectionConfig("a"), newIntersectionConfig("b"))

	for _, u := range []float64{-10, 0, 5, 20, 100, 1e6} {
		for _, p := range m.Solve(u) {
			i := p.Intersection
			assert.InDelta(t, i.CycleLength(), p.Split.Main+p.Split.Secondary+control.LostTime, 1e-9,
				"u=%f intersection=%s", u, i.ID())
			assert.GreaterOrEqual(t, p.Split.Main, control.MinMainGreen)
			assert.GreaterOrEqual(t, p.Split.Secondary, control.MinSecondaryGreen)
		}
	}
}

func TestZeroBudgetCollapsesToFloor(t *testing.T) {
	control := defaultControl()
	m := newManager(t, control, newIntersectionConfig("a"), newIntersectionConfig("b"))

	for _, u := range []float64{0, -5} {
		for _, p := range m.Solve(u) {
			assert.Equal(t, control.MinMainGreen, p.Split.Main)
		}
	}
}

func TestBudgetedSplit(t *testing.T) {
	// cycle=90, satMain=0.5, turnInMain=1.0, lost=6：
	// 预算份额20辆/周期对应主绿灯40s，次流向得90-40-6=44s
	m := newManager(t, defaultControl(), newIntersectionConfig("a"))

	proposals := m.Solve(20)
	require.Len(t, proposals, 1)
	assert.InDelta(t, 40, proposals[0].Split.Main, 1e-9)
	assert.InDelta(t, 44, proposals[0].Split.Secondary, 1e-9)
}

func TestCapacityWeightedShares(t *testing.T) {
	big := newIntersectionConfig("big") // satMain 0.5
	small := newIntersectionConfig("small")
	small.SaturationFlows.Main = 0.25
	m := newManager(t, defaultControl(), big, small)

	// 能力权重2:1，预算30按20/10分配；主绿灯 = share/(satMain*turnIn)
	proposals := m.Solve(30)
	require.Len(t, proposals, 2)
	assert.InDelta(t, 20/(0.5*1.0), proposals[0].Split.Main, 1e-9)
	assert.InDelta(t, 10/(0.25*1.0), proposals[1].Split.Main, 1e-9)
}

func TestBudgetBounds(t *testing.T) {
	control := defaultControl()
	m := newManager(t, control, newIntersectionConfig("a"), newIntersectionConfig("b"))

	uMin, uMax := m.BudgetBounds()
	assert.Equal(t, 0.0, uMin)
	// 每个交叉口 0.5*1.0*(90-6-15) = 34.5
	assert.InDelta(t, 2*34.5, uMax, 1e-9)
}

func TestPriorityInversionOnStarvedMainQueue(t *testing.T) {
	control := defaultControl()
	m := newManager(t, control, newIntersectionConfig("a"))
	// 主流向排队60辆：最小绿灯15s在3个周期内只能放行15*0.5*3=22.5辆
	m.Get("a").SetQueues(entity.Queues{Main: 60, Secondary: 5})

	// 预算份额只够最小绿灯
	proposals := m.Solve(1)
	require.Len(t, proposals, 1)
	// 偏置到 60/(3*0.5) = 40s，超出预算、牺牲次流向
	assert.InDelta(t, 40, proposals[0].Split.Main, 1e-9)
	assert.InDelta(t, 90-6-40, proposals[0].Split.Secondary, 1e-9)
}

func TestEmptyQueuesPreservePreviousSplit(t *testing.T) {
	m := newManager(t, defaultControl(), newIntersectionConfig("a"))
	i := m.Get("a")
	i.SetQueues(entity.Queues{})

	// 初始已提交方案为可用时间均分（42/42），预算充足时沿用
	prev := i.Split()
	proposals := m.Solve(30)
	require.Len(t, proposals, 1)
	assert.Equal(t, prev.Main, proposals[0].Split.Main)
}

func TestMaxChangeRateLimit(t *testing.T) {
	control := defaultControl()
	control.MaxChange = 5
	m := newManager(t, control, newIntersectionConfig("a"))

	// 不限制时主绿灯会到上限69s，限制后相对上一方案42s最多+5s
	proposals := m.Solve(1e6)
	require.Len(t, proposals, 1)
	assert.InDelta(t, 47, proposals[0].Split.Main, 1e-9)
}

func TestInfeasibleFallsBackToPreviousSplit(t *testing.T) {
	control := defaultControl()
	control.MinMainGreen = 50
	control.MinSecondaryGreen = 50 // 90-6 < 50+50，不可行
	m := newManager(t, control, newIntersectionConfig("a"))
	prev := m.Get("a").Split()

	proposals := m.Solve(20)
	require.Len(t, proposals, 1)
	assert.True(t, proposals[0].Fallback)
	assert.Equal(t, prev, proposals[0].Split)
}

func TestCommitUpdatesSplit(t *testing.T) {
	m := newManager(t, defaultControl(), newIntersectionConfig("a"))

	proposals := m.Solve(20)
	m.Commit(proposals)
	assert.Equal(t, proposals[0].Split, m.Get("a").Split())

	// 下一周期的回退目标是新提交的方案
	proposals2 := m.Solve(0)
	assert.Equal(t, 15.0, proposals2[0].Split.Main)
}
