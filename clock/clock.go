package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// Clock 控制周期时钟
// 功能：管理门控系统的控制周期推进，维护周期序号与当前仿真时间
// 说明：所有时间以周期计数，周期间隔为唯一的时间参数
type Clock struct {
	INTERVAL    float64 // 控制间隔（秒）
	START_CYCLE int32   // 起始周期
	END_CYCLE   int32   // 结束周期，控制区间[START, END)

	K int32   // 当前周期序号（单调递增，每个控制间隔恰好推进一次）
	T float64 // 当前仿真时间（秒）
}

// New 根据配置创建新的时钟实例
// 功能：根据控制步配置初始化时钟
// 参数：stepConfig-控制步配置，包含起始周期、总周期数与控制间隔
// 返回：初始化完成的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		INTERVAL:    stepConfig.Interval,
		START_CYCLE: stepConfig.Start,
		END_CYCLE:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 初始化时钟状态
// 功能：重置周期序号为起始周期，重新计算当前时间
func (c *Clock) Init() {
	c.K = c.START_CYCLE
	c.T = float64(c.K) * c.INTERVAL
}

// Advance 推进一个控制周期
// 功能：周期序号加一并更新当前时间
// 说明：每个控制间隔恰好调用一次，是时钟唯一的推进入口
func (c *Clock) Advance() {
	c.K++
	c.T = float64(c.K) * c.INTERVAL
}

// Done 检查控制区间是否结束
// 功能：判断是否已到达结束周期
// 返回：true表示控制区间已结束
func (c *Clock) Done() bool {
	return c.K >= c.END_CYCLE
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为可读的字符串（HH:MM:SS）
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 功能：将当前时间分解为小时、分钟、秒三个部分
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
