package provider

import "errors"

const (
	// 同一way内边id的间隔，需大于Overpass单条way的节点数上限
	EDGE_ID_STRIDE = 10_000

	// 缓存键版本号，解析逻辑不兼容变更时递增以废弃旧缓存
	SCHEMA_VERSION = "1"

	// Overpass服务端超时（单位：秒）
	OVERPASS_QUERY_TIMEOUT = 25

	DEFAULT_OVERPASS_ENDPOINT = "https://overpass-api.de/api/interpreter"
)

var (
	// 错误：上游数据格式不合法
	ErrMalformedElement = errors.New("malformed road element")
)
