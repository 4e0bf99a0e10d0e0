package access

type AccessState string

const (
	AccessFull    AccessState = "full"
	AccessLimited AccessState = "limited"
	AccessLocked  AccessState = "locked"
)

const (
	CapAppointments = "appointments"
	CapPatients     = "patients"
	CapInventory    = "inventory"
	CapBilling      = "billing"
)
