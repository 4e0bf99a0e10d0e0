package access

func CapabilitiesFor(state AccessState) []string {
	switch state {
	case AccessFull:
		return []string{CapAppointments, CapPatients, CapInventory, CapBilling}
	case AccessLimited:
		return []string{CapAppointments, CapPatients}
	default:
		return []string{}
	}
}
