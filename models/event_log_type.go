package models

type EEventLogType string

const (
	UserRegistered EEventLogType = "User registered"
	LoginSucceeded EEventLogType = "Login succeeded"
	LoginFailed    EEventLogType = "Login failed"
	LoggedOut      EEventLogType = "Logged out"
	SettingUpdated EEventLogType = "Setting updated"
	AdminSeeded    EEventLogType = "Admin account seeded"
)
