package vehicles

// occupancies maps GTFS-Realtime occupancy_status values to display labels.
var occupancies = map[int]string{
	0: "Empty",
	1: "Many seats available",
	2: "Few seats available",
	3: "Standing room only",
	4: "Crushed standing room only",
	5: "Full",
	6: "Not accepting passengers",
	7: "No data available",
	8: "Not boardable",
}

func occupancyLabel(status int, overrides map[int]string) string {
	if overrides != nil {
		return overrides[status]
	}
	return occupancies[status]
}
