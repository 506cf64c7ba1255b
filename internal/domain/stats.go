package domain

// TicketStats holds non-archived ticket counts.
type TicketStats struct {
	Total        int
	Open         int
	InProgress   int
	Resolved     int
	Closed       int
	HighPriority int
	ThisWeek     int
	LastWeek     int
}

// RoleCount is the number of users holding a role.
type RoleCount struct {
	Role  Role
	Count int
}
