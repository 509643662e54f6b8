// 提供边界门控的离散PI反馈控制律
// 将区域累积量误差映射为下一控制周期允许的聚合入区流量预算
package gating

import (
	"errors"
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

var (
	ErrBadMeasurement = errors.New("gating: accumulation measurement is negative or non-finite")
)

// State 控制器跨周期持久状态
// 功能：显式持有上一周期误差e(k-1)与上一周期输出u(k-1)
// 说明：控制器状态只是其自身前序状态与累积量量测序列的函数，
// 不混入任何交叉口局部计算；运行起点初始化为零，运行中不复位
type State struct {
	PrevError  float64 // e(k-1)
	PrevOutput float64 // u(k-1)
}

// Controller 边界门控PI控制器
// 功能：实现增量式离散PI控制律，带输出限幅与状态限幅抗积分饱和
// 说明：输出解释为下一控制周期允许的聚合入区流量（辆/控制周期）
type Controller struct {
	kp   float64 // 比例增益
	ki   float64 // 积分增益
	nHat float64 // 目标累积量（辆）
	uMin float64 // 预算下界
	uMax float64 // 预算上界

	// 迟滞激活阈值（辆），activation<=0时控制器始终激活
	activation   float64
	deactivation float64
	active       bool

	state State
}

// New 创建门控控制器
// 功能：根据配置与预算可行范围初始化PI控制器
// 参数：cfg-门控配置，uMin/uMax-预算可行范围（由交叉口能力推导）
// 返回：初始化完成的控制器实例
// 说明：uMax<=0视为无上界；未配置迟滞阈值时控制器始终处于激活状态
func New(cfg config.Gating, uMin, uMax float64) *Controller {
	if uMax <= 0 {
		uMax = mathutil.INF
	}
	c := &Controller{
		kp:           cfg.KP,
		ki:           cfg.KI,
		nHat:         cfg.TargetAccumulation,
		uMin:         uMin,
		uMax:         uMax,
		activation:   cfg.ActivationRatio * cfg.TargetAccumulation,
		deactivation: cfg.DeactivationRatio * cfg.TargetAccumulation,
	}
	c.active = c.activation <= 0
	return c
}

// validate 量测合法性检查
// 说明：负值或非有限值视为该周期的传感故障，调用方保持上一周期方案不动作
func validate(n float64) error {
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return ErrBadMeasurement
	}
	return nil
}

// UpdateActivation 迟滞激活状态更新
// 功能：根据当前累积量更新控制器的激活状态
// 参数：n-当前区域累积量
// 返回：更新后的激活状态
// 算法说明：n超过激活阈值时激活，低于撤销阈值时撤销，两阈值之间保持原状态
func (c *Controller) UpdateActivation(n float64) bool {
	if c.activation <= 0 {
		return c.active
	}
	if n > c.activation {
		if !c.active {
			log.Infof("perimeter gating activated (n=%.0f > %.0f)", n, c.activation)
		}
		c.active = true
	} else if n < c.deactivation {
		if c.active {
			log.Infof("perimeter gating deactivated (n=%.0f < %.0f)", n, c.deactivation)
		}
		c.active = false
	}
	return c.active
}

// Step 执行一次控制律更新
// 功能：由当前累积量量测计算下一周期允许的聚合入区预算
// 参数：n-当前区域累积量（非负）
// 返回：限幅后的预算u(k)与量测错误
// 算法说明：
// 1. 计算误差e(k) = n̂ - n
// 2. 增量式PI：u(k) = u(k-1) + Kp*(e(k)-e(k-1)) + Ki*e(k)
// 3. 输出限幅至[uMin, uMax]
// 4. 存储的u(k-1)同样取限幅后的值，积分饱和不跨周期累积（状态限幅抗饱和）
func (c *Controller) Step(n float64) (float64, error) {
	if err := validate(n); err != nil {
		return 0, err
	}
	e := c.nHat - n
	u := c.state.PrevOutput + c.kp*(e-c.state.PrevError) + c.ki*e
	u = lo.Clamp(u, c.uMin, c.uMax)
	c.state.PrevError = e
	c.state.PrevOutput = u
	return u, nil
}

// Observe 仅记录误差的量测更新
// 功能：在控制器未激活的周期维护误差序列，输出保持不变
// 参数：n-当前区域累积量
// 返回：量测错误
// 说明：避免激活瞬间误差差分项产生跳变
func (c *Controller) Observe(n float64) error {
	if err := validate(n); err != nil {
		return err
	}
	c.state.PrevError = c.nHat - n
	return nil
}

// Active 获取激活状态
func (c *Controller) Active() bool {
	return c.active
}

// State 获取控制器持久状态
func (c *Controller) State() State {
	return c.state
}

// Target 获取目标累积量n̂
func (c *Controller) Target() float64 {
	return c.nHat
}
