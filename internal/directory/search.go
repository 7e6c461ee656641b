package directory

import "strings"

// SearchDoctors filters doctors by a case-insensitive name substring and an
// optional specialization. An empty query with no specialization returns the
// input unchanged.
func SearchDoctors(doctors []*Profile, query string, specialization string) []*Profile {
	query = strings.ToLower(strings.TrimSpace(query))
	specialization = strings.TrimSpace(specialization)
	if query == "" && specialization == "" {
		return doctors
	}

	out := make([]*Profile, 0, len(doctors))
	for _, d := range doctors {
		if d == nil {
			continue
		}
		matchesSearch := query == "" || strings.Contains(strings.ToLower(d.FullName), query)
		matchesSpecialization := specialization == "" ||
			(d.Specialization != nil && strings.EqualFold(*d.Specialization, specialization))
		if matchesSearch && matchesSpecialization {
			out = append(out, d)
		}
	}
	return out
}
