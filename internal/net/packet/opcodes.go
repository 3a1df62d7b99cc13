package packet

// Client → server op codes handled by the channel server.
const (
	OpChannelLogin     int32 = 0x4E24
	OpDisconnect       int32 = 0x4E2A
	OpNpcTalkStart     int32 = 0x55C2
	OpNpcTalkEnd       int32 = 0x55C4
	OpHitProp          int32 = 0x7530
	OpGmcpClose        int32 = 0x8AA1
	OpGmcpSummon       int32 = 0x8AA2
	OpGmcpMoveToChar   int32 = 0x8AA3
	OpGmcpWarp         int32 = 0x8AA4
	OpGmcpRevive       int32 = 0x8AA5
	OpGmcpInvisibility int32 = 0x8AA6
	OpGmcpExpel        int32 = 0x8AA8
	OpGmcpBan          int32 = 0x8AA9
	OpGmcpNpcList      int32 = 0x8AAF
	OpGmcpIncidents    int32 = 0x8AB1
)

// Server → client op codes.
const (
	OpChannelLoginR     int32 = 0x4E25
	OpDisconnectR       int32 = 0x4E2B
	OpNpcTalkStartR     int32 = 0x55C3
	OpNpcTalkEndR       int32 = 0x55C5
	OpServerMessage     int32 = 0x526C
	OpMsgBox            int32 = 0x526F
	OpNotice            int32 = 0x6D69
	OpEntityAppears     int32 = 0x520C
	OpEntityDisappears  int32 = 0x520D
	OpItemAppears       int32 = 0x5211
	OpHitPropR          int32 = 0x7531
	OpGmcpInvisibilityR int32 = 0x8AA7
	OpGmcpNpcListR      int32 = 0x8AB0
	OpWarpRegion        int32 = 0x6594
	OpEffect            int32 = 0x9090
)

// Effect ids used with OpEffect.
const (
	EffectSkillInit int32 = 0x0B
	EffectSpawn     int32 = 0x1D
)

// Broadcast is the id used for packets addressed to everyone.
const Broadcast int64 = 0x3000000000000000
