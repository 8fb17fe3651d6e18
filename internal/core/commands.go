package core

const (
	CmdSendMessage          = "SendMessage"
	CmdEditMessage          = "EditMessage"
	CmdDeleteMessage        = "DeleteMessage"
	CmdPinMessage           = "PinMessage"
	CmdUnpinMessage         = "UnpinMessage"
	CmdGetMessages          = "GetMessages"
	CmdCreateThread         = "CreateThread"
	CmdUpdateThread         = "UpdateThread"
	CmdDeleteThread         = "DeleteThread"
	CmdAddUserToThread      = "AddUserToThread"
	CmdRemoveUserFromThread = "RemoveUserFromThread"
	CmdListActiveThreads    = "ListActiveThreads"
	CmdKickUser             = "KickUser"
	CmdBanUser              = "BanUser"
	CmdUnbanUser            = "UnbanUser"
	CmdCheckUserPermission  = "CheckUserPermission"
	CmdCheckAdminOrOwner    = "CheckAdminOrOwner"
)

// ThrottledCommands lists the operations that pass through the cooldown gate.
var ThrottledCommands = []string{
	CmdSendMessage,
	CmdEditMessage,
	CmdDeleteMessage,
	CmdPinMessage,
	CmdUnpinMessage,
	CmdGetMessages,
	CmdCreateThread,
	CmdUpdateThread,
	CmdDeleteThread,
	CmdAddUserToThread,
	CmdRemoveUserFromThread,
	CmdListActiveThreads,
}
