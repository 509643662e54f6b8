package config

// StreamValue 主/次流向参数对
// 功能：定义一个按主流向（main）和次流向（secondary）区分的参数对
// 说明：用于饱和流率、入区比例、排队长度等按流向配置的参数
type StreamValue struct {
	Main      float64 `yaml:"main"`      // 主流向取值
	Secondary float64 `yaml:"secondary"` // 次流向取值
}

// Intersection 边界交叉口配置
// 功能：定义一个受控边界交叉口的静态参数
// 说明：启动时加载一次，运行期间不可变；排队长度仅作为首次量测前的初始值
type Intersection struct {
	ID              string      `yaml:"id"`               // 交叉口唯一标识
	TrafficLightID  string      `yaml:"traffic_light_id"` // 仿真信号控制命名空间中的信号灯ID
	CycleLength     float64     `yaml:"cycle_length"`     // 信号周期长度（秒），全程固定
	MainPhases      []int32     `yaml:"main_phases"`      // 主流向相位索引
	SecondaryPhases []int32     `yaml:"secondary_phases"` // 次流向相位索引，与主流向相位不相交
	SaturationFlows StreamValue `yaml:"saturation_flows"` // 饱和流率（辆/秒）
	TurnInRatios    StreamValue `yaml:"turn_in_ratios"`   // 入区比例（[0,1]）
	QueueLengths    StreamValue `yaml:"queue_lengths"`    // 初始排队长度（辆），首次量测前的默认值
}

// QueueBinding 检测器与交叉口的绑定配置
// 功能：定义一个交叉口的排队检测器绑定关系与次流向归约策略
// 说明：归约策略在配置中固定（sum/max/mean），不允许按调用推断
type QueueBinding struct {
	Intersection    string   `yaml:"intersection"`               // 交叉口ID
	MainQueue       []string `yaml:"main_queue"`                 // 主流向排队检测器ID列表（求和）
	SecondaryQueue  []string `yaml:"secondary_queue"`            // 次流向排队检测器ID列表
	SecondaryPolicy string   `yaml:"secondary_policy,omitempty"` // 次流向归约策略（sum|max|mean，默认sum）
}

// Detectors 检测器配置
// 功能：定义区域累积检测器与各交叉口排队检测器的绑定
type Detectors struct {
	Accumulation []string       `yaml:"accumulation"` // 区域累积检测器ID列表（不允许重复）
	Queues       []QueueBinding `yaml:"queues"`       // 各交叉口排队检测器绑定
}

// Gating 边界门控控制器配置
// 功能：定义PI控制器增益、目标累积量与迟滞激活阈值
// 说明：激活/撤销阈值按目标累积量的比例给出，两者同时为0时控制器始终激活
type Gating struct {
	KP                 float64 `yaml:"kp"`                           // 比例增益（默认20.0）
	KI                 float64 `yaml:"ki"`                           // 积分增益（默认5.0）
	TargetAccumulation float64 `yaml:"target_accumulation"`          // 目标累积量n̂（辆）
	ActivationRatio    float64 `yaml:"activation_ratio,omitempty"`   // 激活阈值比例（n > ratio*n̂时激活）
	DeactivationRatio  float64 `yaml:"deactivation_ratio,omitempty"` // 撤销阈值比例（n < ratio*n̂时撤销）
}

// ControlStep 指定控制周期范围和间隔的配置项
// 功能：定义控制周期的时间范围与步长
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始周期序号
	Total    int32   `yaml:"total"`    // 总周期数
	Interval float64 `yaml:"interval"` // 控制间隔（秒，默认90）
}

// Control 控制器全局配置
// 功能：定义控制周期与绿灯分配求解的全局参数
type Control struct {
	Step              ControlStep `yaml:"step"`
	LostTime          float64     `yaml:"lost_time"`            // 每周期固定损失时间（秒）
	MinMainGreen      float64     `yaml:"min_main_green"`       // 主流向最小绿灯时间（秒）
	MinSecondaryGreen float64     `yaml:"min_secondary_green"`  // 次流向最小绿灯时间（秒）
	QueuePatience     int         `yaml:"queue_patience"`       // 主流向排队清空容忍周期数
	MaxChange         float64     `yaml:"max_change,omitempty"` // 相邻周期绿灯时间最大变化量（秒，0为不限制）
}

// Output 周期记录输出配置
// 功能：定义周期记录的可选输出端（MongoDB集合、CSV文件）
// 说明：两者均为空时不产生任何输出
type Output struct {
	URI string `yaml:"uri,omitempty"` // MongoDB连接字符串
	DB  string `yaml:"db,omitempty"`  // 数据库名
	Col string `yaml:"col,omitempty"` // 集合名
	CSV string `yaml:"csv,omitempty"` // CSV输出文件路径
}

// Config YAML配置文件的根结构
// 功能：定义整个边界门控系统的配置结构
type Config struct {
	Control       Control        `yaml:"control"`          // 控制过程配置
	Gating        Gating         `yaml:"gating"`           // 门控控制器配置
	Intersections []Intersection `yaml:"intersections"`    // 边界交叉口列表
	Detectors     Detectors      `yaml:"detectors"`        // 检测器绑定
	Output        Output         `yaml:"output,omitempty"` // 周期记录输出
}
