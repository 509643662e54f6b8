package task_test

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/perimeter-gating/boundary/mock"
	"github.com/tsinghua-fib-lab/perimeter-gating/entity"
	"github.com/tsinghua-fib-lab/perimeter-gating/task"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

func baseConfig() config.Config {
	return config.Config{
		Control: config.Control{
			Step:              config.ControlStep{Start: 0, Total: 5, Interval: 90},
			LostTime:          6,
			MinMainGreen:      15,
			MinSecondaryGreen: 15,
			QueuePatience:     3,
		},
		Gating: config.Gating{
			KP:                 20,
			KI:                 5,
			TargetAccumulation: 150,
		},
		Intersections: []config.Intersection{{
			ID:              "a",
			TrafficLightID:  "tl_a",
			CycleLength:     90,
			MainPhases:      []int32{0},
			SecondaryPhases: []int32{2},
			SaturationFlows: config.StreamValue{Main: 0.5, Secondary: 0.4},
			TurnInRatios:    config.StreamValue{Main: 1.0, Secondary: 0.5},
			QueueLengths:    config.StreamValue{Main: 10, Secondary: 5},
		}},
		Detectors: config.Detectors{
			Accumulation: []string{"n1"},
			Queues: []config.QueueBinding{{
				Intersection:   "a",
				MainQueue:      []string{"qm"},
				SecondaryQueue: []string{"qs"},
			}},
		},
	}
}

func scriptedBoundary(accumulation []float64) *mock.Boundary {
	return mock.NewScripted(map[string][]float64{
		"n1": accumulation,
		"qm": {10},
		"qs": {5},
	})
}

func runOneCycle(t *testing.T, ctx *task.Context) error {
	ctx.Clock().Advance()
	err := ctx.RunCycle(ctx.Clock().T)
	assert.Equal(t, task.StateIdle, ctx.State())
	return err
}

func TestRunCycleAppliesSplits(t *testing.T) {
	b := scriptedBoundary([]float64{100, 150})
	ctx := task.NewContext(baseConfig(), b, b, nil)
	ctx.Init()

	// n=100：误差50，控制量饱和到uMax=34.5，主绿灯到上限69s
	require.Nil(t, runOneCycle(t, ctx))
	p, ok := b.Applied("tl_a")
	require.True(t, ok)
	assert.InDelta(t, 69, p.MainGreen, 1e-9)
	assert.InDelta(t, 15, p.SecondaryGreen, 1e-9)
	assert.Equal(t, []int32{0}, p.MainPhases)
	assert.Equal(t, []int32{2}, p.SecondaryPhases)

	// n=150：误差归零，比例项把控制量拉回0以下后截断，主绿灯收缩到下限
	require.Nil(t, runOneCycle(t, ctx))
	p, _ = b.Applied("tl_a")
	assert.InDelta(t, 15, p.MainGreen, 1e-9)
	assert.InDelta(t, 69, p.SecondaryGreen, 1e-9)

	// 周期长度不变式对每个已提交的程序成立
	for _, p := range b.AppliedPrograms() {
		assert.InDelta(t, 90, p.MainGreen+p.SecondaryGreen+6, 1e-9)
	}
}

func TestQueuesRefreshedEachCycle(t *testing.T) {
	b := mock.NewScripted(map[string][]float64{
		"n1": {100},
		"qm": {20, 30},
		"qs": {5, 7},
	})
	ctx := task.NewContext(baseConfig(), b, b, nil)
	ctx.Init()

	require.Nil(t, runOneCycle(t, ctx))
	assert.Equal(t, entity.Queues{Main: 20, Secondary: 5}, ctx.IntersectionManager().Get("a").Queues())
	require.Nil(t, runOneCycle(t, ctx))
	assert.Equal(t, entity.Queues{Main: 30, Secondary: 7}, ctx.IntersectionManager().Get("a").Queues())
}

func TestSensingFailureHoldsThenEscalates(t *testing.T) {
	b := scriptedBoundary([]float64{100})
	ctx := task.NewContext(baseConfig(), b, b, nil)
	ctx.Init()

	require.Nil(t, runOneCycle(t, ctx))

	// 第一次批量失败：全部检测器沿用上次读数，周期正常完成
	b.FailNextSensing()
	require.Nil(t, runOneCycle(t, ctx))

	// 连续第二次失败：过期升级为运行级致命错误
	b.FailNextSensing()
	err := runOneCycle(t, ctx)
	require.NotNil(t, err)
	var fault *entity.SensorFault
	assert.ErrorAs(t, err, &fault)
}

func TestActuationFaultTerminatesCycle(t *testing.T) {
	b := scriptedBoundary([]float64{100})
	ctx := task.NewContext(baseConfig(), b, b, nil)
	ctx.Init()
	prev := ctx.IntersectionManager().Get("a").Split()

	b.SetApplyFailure("tl_a", true)
	err := runOneCycle(t, ctx)
	require.NotNil(t, err)
	var fault *entity.ActuationFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "tl_a", fault.TrafficLightID)

	// 提交失败的周期不改变已提交方案
	assert.Equal(t, prev, ctx.IntersectionManager().Get("a").Split())
}

func TestHysteresisKeepsControllerInactive(t *testing.T) {
	c := baseConfig()
	c.Gating.ActivationRatio = 0.85
	c.Gating.DeactivationRatio = 0.70
	b := scriptedBoundary([]float64{100, 130})
	ctx := task.NewContext(c, b, b, nil)
	ctx.Init()

	// n=100 < 0.85*150：未激活，不向边界提交任何方案
	require.Nil(t, runOneCycle(t, ctx))
	assert.False(t, ctx.Controller().Active())
	assert.Empty(t, b.AppliedPrograms())

	// n=130 > 127.5：越过激活阈值后开始执行
	require.Nil(t, runOneCycle(t, ctx))
	assert.True(t, ctx.Controller().Active())
	assert.Len(t, b.AppliedPrograms(), 1)
}

func TestRunCompletesInterval(t *testing.T) {
	b := scriptedBoundary([]float64{100, 110, 120, 130, 140})
	ctx := task.NewContext(baseConfig(), b, b, nil)

	ctx.Run()
	assert.True(t, ctx.Clock().Done())
	assert.Equal(t, int32(5), ctx.Clock().K)
	assert.Len(t, b.AppliedPrograms(), 1)
}

func TestZeroHeartbeatInterval(t *testing.T) {
	require.Nil(t, flag.Set("log.heartbeat_interval", "0"))
	defer flag.Set("log.heartbeat_interval", "10")

	b := scriptedBoundary([]float64{100, 110, 120, 130, 140})
	ctx := task.NewContext(baseConfig(), b, b, nil)

	// 心跳间隔为0时不输出心跳，也不产生除零
	assert.NotPanics(t, func() { ctx.Run() })
	assert.True(t, ctx.Clock().Done())
}

func TestCloseStopsRunAtCycleBoundary(t *testing.T) {
	b := scriptedBoundary([]float64{100})
	ctx := task.NewContext(baseConfig(), b, b, nil)
	ctx.Close()

	ctx.Run()
	assert.Equal(t, int32(1), ctx.Clock().K)
}

func TestNewContextPanicsOnInvalidConfig(t *testing.T) {
	c := baseConfig()
	c.Intersections[0].CycleLength = 20 // 容不下最小绿灯与损失时间

	assert.Panics(t, func() {
		task.NewContext(c, nil, nil, nil)
	})
}
