package core

import (
	"cmp"
	"slices"
	"time"
	"yardops/pkg/domain"
)

// LogisticsKPIs summarises booking demand against collections in progress.
type LogisticsKPIs struct {
	OpenBookings       int `json:"openBookings"`
	TotalQtyRequired   int `json:"totalQtyRequired"`
	InProcess          int `json:"inProcess"`
	AwaitingCollection int `json:"awaitingCollection"`
}

// LogisticsKPIs computes booking-level counters from the cache.
func (s *Service) LogisticsKPIs() LogisticsKPIs {
	var k LogisticsKPIs
	for _, b := range s.cache.Bookings() {
		if b.IsOpen() {
			k.OpenBookings++
			k.TotalQtyRequired += b.Qty
		}
	}
	for _, c := range s.cache.Collections() {
		k.InProcess += c.Qty
	}
	onBooking := 0
	for _, c := range s.cache.Containers() {
		if c.BookingNumber != "" {
			onBooking++
		}
	}
	k.AwaitingCollection = max(k.InProcess-onBooking, 0)
	return k
}

// DriverKPIs counts drivers and the collections they still have open.
type DriverKPIs struct {
	TotalDrivers    int `json:"totalDrivers"`
	ActiveDrivers   int `json:"activeDrivers"`
	OpenCollections int `json:"openCollections"`
}

// DriverKPIs computes driver counters from the cache.
func (s *Service) DriverKPIs() DriverKPIs {
	k := DriverKPIs{TotalDrivers: s.cache.Count(domain.KindDriver)}
	active := make(map[string]struct{})
	for _, c := range s.cache.Collections() {
		if c.IsComplete() {
			continue
		}
		k.OpenCollections++
		active[c.DriverID] = struct{}{}
	}
	k.ActiveDrivers = len(active)
	return k
}

// LocationCount is the number of containers at one location.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// LocationCounts returns the container total and a count per known location,
// in location order.
func (s *Service) LocationCounts() (int, []LocationCount) {
	containers := s.cache.Containers()
	at := make(map[string]int)
	for _, c := range containers {
		at[c.Location]++
	}
	locations := s.cache.Locations()
	out := make([]LocationCount, 0, len(locations))
	for _, l := range locations {
		out = append(out, LocationCount{Location: l.Name, Count: at[l.Name]})
	}
	return len(containers), out
}

// DriverTask is one line on a driver's work list: either containers still to
// collect on a collection or a collected container still to deliver.
type DriverTask struct {
	Type       string             `json:"type"`
	Qty        int                `json:"qty,omitempty"`
	Collection *domain.Collection `json:"collection,omitempty"`
	Container  *domain.Container  `json:"container,omitempty"`
}

// Driver task types.
const (
	TaskCollect = "collect"
	TaskDeliver = "deliver"
)

// DriverTasks is the work list of one driver.
type DriverTasks struct {
	Driver string       `json:"driver"`
	Tasks  []DriverTask `json:"tasks"`
}

// DriverTasks groups outstanding collect and deliver tasks by driver name.
// Drivers without tasks are omitted.
func (s *Service) DriverTasks() []DriverTasks {
	byDriver := make(map[string][]DriverTask)
	for _, col := range s.cache.Collections() {
		if col.DriverName == "" {
			continue
		}
		if left := col.Qty - len(col.CollectedContainers); left > 0 {
			byDriver[col.DriverName] = append(byDriver[col.DriverName], DriverTask{Type: TaskCollect, Qty: left, Collection: col})
		}
	}
	for _, c := range s.cache.Containers() {
		if c.Status == domain.StatusCollectedFromPier && c.Driver != "" {
			byDriver[c.Driver] = append(byDriver[c.Driver], DriverTask{Type: TaskDeliver, Container: c})
		}
	}
	out := make([]DriverTasks, 0, len(byDriver))
	for name, tasks := range byDriver {
		out = append(out, DriverTasks{Driver: name, Tasks: tasks})
	}
	slices.SortFunc(out, func(a, b DriverTasks) int { return cmp.Compare(a.Driver, b.Driver) })
	return out
}

// OperatorStop lists containers waiting to be loaded at one operator location.
type OperatorStop struct {
	Location   string              `json:"location"`
	Containers []*domain.Container `json:"containers"`
}

// OperatorQueue groups containers moved to operator locations by location.
func (s *Service) OperatorQueue() []OperatorStop {
	byLocation := make(map[string][]*domain.Container)
	for _, c := range s.cache.Containers() {
		if c.Status == domain.StatusMovedToOperator && domain.IsOperatorLocation(c.Location) {
			byLocation[c.Location] = append(byLocation[c.Location], c)
		}
	}
	out := make([]OperatorStop, 0, len(byLocation))
	for loc, containers := range byLocation {
		out = append(out, OperatorStop{Location: loc, Containers: containers})
	}
	slices.SortFunc(out, func(a, b OperatorStop) int { return cmp.Compare(a.Location, b.Location) })
	return out
}

// ReportFilter narrows turnaround reports. Zero values do not filter.
// From and To bound the yard delivery time, inclusive.
type ReportFilter struct {
	Driver string    `json:"driver,omitempty"`
	From   time.Time `json:"from,omitempty"`
	To     time.Time `json:"to,omitempty"`
}

func (f ReportFilter) match(c *domain.Container) bool {
	if c.CollectedAt == nil || c.DeliveredToYardAt == nil {
		return false
	}
	if f.Driver != "" && c.Driver != f.Driver {
		return false
	}
	if !f.From.IsZero() && c.DeliveredToYardAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.DeliveredToYardAt.After(f.To) {
		return false
	}
	return true
}

// TurnaroundEntry is the pier-to-yard time of one container.
type TurnaroundEntry struct {
	Serial string  `json:"serial"`
	Driver string  `json:"driver"`
	Hours  float64 `json:"hours"`
}

// Turnaround reports pier-to-yard hours for delivered containers.
func (s *Service) Turnaround(f ReportFilter) []TurnaroundEntry {
	var out []TurnaroundEntry
	for _, c := range s.cache.Containers() {
		if !f.match(c) {
			continue
		}
		out = append(out, TurnaroundEntry{
			Serial: c.Serial,
			Driver: c.Driver,
			Hours:  c.DeliveredToYardAt.Sub(*c.CollectedAt).Hours(),
		})
	}
	return out
}

// DriverPerformance is a driver's delivery count and mean turnaround.
type DriverPerformance struct {
	Name       string  `json:"name"`
	Deliveries int     `json:"deliveries"`
	AvgHours   float64 `json:"avgHours"`
}

// DriverPerformance reports every known driver, most deliveries first.
func (s *Service) DriverPerformance(f ReportFilter) []DriverPerformance {
	turnaround := s.Turnaround(ReportFilter{From: f.From, To: f.To})
	var out []DriverPerformance
	for _, d := range s.cache.Drivers() {
		if f.Driver != "" && d.Name != f.Driver {
			continue
		}
		p := DriverPerformance{Name: d.Name}
		total := 0.0
		for _, t := range turnaround {
			if t.Driver == d.Name {
				p.Deliveries++
				total += t.Hours
			}
		}
		if p.Deliveries > 0 {
			p.AvgHours = total / float64(p.Deliveries)
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b DriverPerformance) int { return cmp.Compare(b.Deliveries, a.Deliveries) })
	return out
}

// Report bundles the computed views for export.
type Report struct {
	GeneratedAt       time.Time           `json:"generatedAt"`
	Filter            ReportFilter        `json:"filter"`
	Logistics         LogisticsKPIs       `json:"logistics"`
	Drivers           DriverKPIs          `json:"drivers"`
	TotalContainers   int                 `json:"totalContainers"`
	Locations         []LocationCount     `json:"locations"`
	Turnaround        []TurnaroundEntry   `json:"turnaround"`
	DriverPerformance []DriverPerformance `json:"driverPerformance"`
}

// BuildReport assembles every report view at the current cache state.
func (s *Service) BuildReport(f ReportFilter) Report {
	total, locations := s.LocationCounts()
	return Report{
		GeneratedAt:       s.now(),
		Filter:            f,
		Logistics:         s.LogisticsKPIs(),
		Drivers:           s.DriverKPIs(),
		TotalContainers:   total,
		Locations:         locations,
		Turnaround:        s.Turnaround(f),
		DriverPerformance: s.DriverPerformance(f),
	}
}
