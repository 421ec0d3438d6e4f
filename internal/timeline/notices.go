package timeline

import "fmt"

// Notice is a synthesized system line. Notices sharing a Key inside the system
// window are shown once.
type Notice struct {
	Key  string
	Text string
}

// JoinNotice is shown when a user joins the room.
func JoinNotice(userID, name string) Notice {
	return Notice{Key: "join:" + userID, Text: fmt.Sprintf("%s joined the room", name)}
}

// LeaveNotice is shown when a user leaves the room.
func LeaveNotice(userID, name string) Notice {
	return Notice{Key: "leave:" + userID, Text: fmt.Sprintf("%s left the room", name)}
}

// KickNotice is shown when a user is kicked from the room.
func KickNotice(userID, name string) Notice {
	return Notice{Key: "kick:" + userID, Text: fmt.Sprintf("%s was kicked from the room", name)}
}

// ForcedLeaveNotice is shown when this client is removed from the room.
func ForcedLeaveNotice(reason string) Notice {
	if reason == "" {
		return Notice{Key: "forced-leave", Text: "You were removed from this room"}
	}
	return Notice{Key: "forced-leave", Text: fmt.Sprintf("You were removed from this room: %s", reason)}
}

// ErrorNotice wraps an error message for display.
func ErrorNotice(msg string) Notice {
	return Notice{Key: "error:" + msg, Text: "Error: " + msg}
}

// ReportNotice confirms a submitted report.
func ReportNotice(name string) Notice {
	return Notice{Key: "report:" + name, Text: fmt.Sprintf("Your report about %s was submitted", name)}
}

// BanNotice tells the user they may not join the room yet.
func BanNotice(minutes int) Notice {
	if minutes <= 0 {
		return Notice{Key: "banned", Text: "You are temporarily banned from this room"}
	}
	return Notice{Key: "banned", Text: fmt.Sprintf("You are temporarily banned from this room (%d min remaining)", minutes)}
}
