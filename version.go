package meshnode

// ════════════════════════════════════════════════════════════════════════════
//                              版本信息
// ════════════════════════════════════════════════════════════════════════════

// Version 当前版本
const Version = "v0.1.0"

// ProtocolVersion identify 协议版本
const ProtocolVersion = "/meshnode/0.0.1"

// BuildInfo 构建信息（通过 ldflags 注入）
var (
	// GitCommit Git 提交哈希
	GitCommit string

	// BuildDate 构建日期
	BuildDate string
)

// UserAgent identify 中上报的 agent 版本
func UserAgent() string {
	return "meshnode/" + Version
}

// VersionInfo 返回完整版本信息字符串
func VersionInfo() string {
	info := "meshnode " + Version
	if GitCommit != "" {
		info += " (" + GitCommit[:min(8, len(GitCommit))] + ")"
	}
	if BuildDate != "" {
		info += " built " + BuildDate
	}
	return info
}
