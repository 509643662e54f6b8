// 周期记录输出：把每个控制周期的量测、控制量与绿灯分配写入MongoDB集合和/或CSV文件
package recorder

import (
	"context"

	"git.fiblab.net/general/common/v2/mongoutil"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// SplitRecord 单个交叉口的周期记录
type SplitRecord struct {
	ID             string  `bson:"id" json:"id"`                             // 交叉口ID
	TrafficLightID string  `bson:"traffic_light_id" json:"traffic_light_id"` // 信号灯ID
	MainGreen      float64 `bson:"main_green" json:"main_green"`             // 主流向绿灯时间（秒）
	SecondaryGreen float64 `bson:"secondary_green" json:"secondary_green"`   // 次流向绿灯时间（秒）
	MainQueue      float64 `bson:"main_queue" json:"main_queue"`             // 主流向排队长度（辆）
	SecondaryQueue float64 `bson:"secondary_queue" json:"secondary_queue"`   // 次流向排队长度（辆）
	Fallback       bool    `bson:"fallback,omitempty" json:"fallback"`       // 是否回退到上一周期方案
}

// CycleRecord 一个控制周期的完整记录
type CycleRecord struct {
	Cycle  int32         `bson:"cycle" json:"cycle"`   // 周期序号k
	T      float64       `bson:"t" json:"t"`           // 仿真时间（秒）
	N      float64       `bson:"n" json:"n"`           // 区域累积量量测
	Error  float64       `bson:"error" json:"error"`   // 累积量误差e(k)
	U      float64       `bson:"u" json:"u"`           // 聚合入区预算u(k)
	Active bool          `bson:"active" json:"active"` // 门控是否激活
	Splits []SplitRecord `bson:"splits" json:"splits"` // 各交叉口分配方案
}

// Recorder 周期记录器
// 功能：按配置把周期记录写入MongoDB和/或CSV，两者均未配置时为空操作
type Recorder struct {
	col *mongo.Collection
	csv *csvSink

	client *mongo.Client
}

// New 创建周期记录器
// 功能：根据输出配置连接MongoDB集合、打开CSV文件
// 参数：cfg-输出配置
// 返回：记录器实例与错误
func New(cfg config.Output) (*Recorder, error) {
	r := &Recorder{}
	if cfg.URI != "" {
		r.client = mongoutil.NewClient(cfg.URI)
		r.col = r.client.Database(cfg.DB).Collection(cfg.Col)
	}
	if cfg.CSV != "" {
		sink, err := newCSVSink(cfg.CSV)
		if err != nil {
			return nil, err
		}
		r.csv = sink
	}
	return r, nil
}

// Record 写入一个周期的记录
// 功能：把记录写入全部已配置的输出端
// 说明：输出失败只记警告，不影响控制循环
func (r *Recorder) Record(rec CycleRecord) {
	if r == nil {
		return
	}
	if r.col != nil {
		if _, err := r.col.InsertOne(context.Background(), rec); err != nil {
			log.Warnf("mongo insert failed at cycle %d: %v", rec.Cycle, err)
		}
	}
	if r.csv != nil {
		if err := r.csv.write(rec); err != nil {
			log.Warnf("csv write failed at cycle %d: %v", rec.Cycle, err)
		}
	}
}

// Close 关闭记录器
// 功能：冲刷CSV缓冲并断开MongoDB连接
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	if r.csv != nil {
		if err := r.csv.close(); err != nil {
			log.Warnf("csv close failed: %v", err)
		}
	}
	if r.client != nil {
		if err := r.client.Disconnect(context.Background()); err != nil {
			log.Warnf("mongo disconnect failed: %v", err)
		}
	}
}
