package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/radpipe/radpipe/internal/feed"
)

// Facility is one row of the imaging facility roster.
type Facility struct {
	ID           string
	Name         string
	Type         string
	AddressLine1 string
	City         string
	State        string
	Zipcode      string
	Phone        string
	TotalBeds    *int
	HasEmergency bool
	HasICU       bool
}

var (
	facilityTypes = []string{"Hospital", "Clinic", "Imaging Center"}

	facilityCities = []string{"Kigali", "Butare", "Gisenyi", "Ruhengeri", "Byumba", "Cyangugu", "Kibungo"}

	facilityProvinces = []string{"Kigali Province", "Eastern Province", "Southern Province", "Western Province", "Northern Province"}

	facilityNameParts = []string{"Central", "Community", "Regional", "University", "District", "Memorial", "General", "Faith", "Hope", "King Faisal"}
)

// GenerateFacilities builds a deterministic facility roster of n entries.
// Facility types cycle so every roster of three or more carries at least one
// hospital, which encounter assignment depends on. A seed of 0 selects a
// time-based seed.
func GenerateFacilities(n int, seed int64) []Facility {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	synth := feed.NewSynthesizer(seed)

	facilities := make([]Facility, 0, n)
	for i := 0; i < n; i++ {
		ftype := facilityTypes[i%len(facilityTypes)]
		city := facilityCities[rng.Intn(len(facilityCities))]

		f := Facility{
			ID:           fmt.Sprintf("FAC%06d", i+1),
			Name:         fmt.Sprintf("%s %s %s", city, facilityNameParts[rng.Intn(len(facilityNameParts))], ftype),
			Type:         ftype,
			AddressLine1: synth.StreetAddress(),
			City:         city,
			State:        facilityProvinces[rng.Intn(len(facilityProvinces))],
			Zipcode:      synth.Postcode(),
			Phone:        synth.Phone(),
			HasEmergency: rng.Intn(2) == 1,
			HasICU:       rng.Intn(2) == 1,
		}
		if rng.Float64() > 0.3 {
			beds := 50 + rng.Intn(451)
			f.TotalBeds = &beds
		}
		facilities = append(facilities, f)
	}
	return facilities
}
