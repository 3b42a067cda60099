package dashboard

import (
	"sort"
	"time"

	"github.com/joshua-takyi/tourdesk/internal/models"
)

const (
	UnknownTourName = "Unknown Tour"
	UnknownTourType = "Unknown Type"
)

type BookingNode struct {
	Booking models.Booking `json:"booking"`
	Classification
}

type InstanceGroup struct {
	Key            string        `json:"key"`
	Tour           *models.Tour  `json:"tour"`
	Bookings       []BookingNode `json:"bookings"`
	TotalBookings  int           `json:"total_bookings"`
	PendingCount   int           `json:"pending_count"`
	ConfirmedCount int           `json:"confirmed_count"`
	ConfirmedSeats int           `json:"confirmed_seats"`
	// Occupancy is confirmed bookings over max capacity, 0 without a capacity.
	Occupancy float64 `json:"occupancy"`
}

type TemplateGroup struct {
	Key      string           `json:"key"`
	Name     string           `json:"name"`
	TourType string           `json:"tour_type"`
	Template *models.Template `json:"template,omitempty"`
	// KeyedByFallback is set when the key came from name and type because
	// the tours carry no parent template id. Distinct templates sharing a
	// name and type end up in the same group.
	KeyedByFallback bool                      `json:"keyed_by_fallback"`
	Instances       map[string]*InstanceGroup `json:"instances"`
	Order           []string                  `json:"order"`

	TotalBookings int     `json:"total_bookings"`
	PendingCount  int     `json:"pending_count"`
	UrgentCount   int     `json:"urgent_count"`
	UnreadCount   int     `json:"unread_count"`
	Revenue       float64 `json:"revenue"`
}

// OrderedInstances returns the instances in Order.
func (g *TemplateGroup) OrderedInstances() []*InstanceGroup {
	out := make([]*InstanceGroup, 0, len(g.Order))
	for _, k := range g.Order {
		out = append(out, g.Instances[k])
	}
	return out
}

type Tree struct {
	Templates map[string]*TemplateGroup `json:"templates"`
	// Order is catalog order, followed by keys only reachable through bookings.
	Order []string `json:"order"`
}

// Ordered returns the template groups in Order.
func (t *Tree) Ordered() []*TemplateGroup {
	out := make([]*TemplateGroup, 0, len(t.Order))
	for _, k := range t.Order {
		out = append(out, t.Templates[k])
	}
	return out
}

// FallbackGroups lists groups keyed by name and type that hold bookings.
func (t *Tree) FallbackGroups() []*TemplateGroup {
	var out []*TemplateGroup
	for _, g := range t.Ordered() {
		if g.KeyedByFallback && g.TotalBookings > 0 {
			out = append(out, g)
		}
	}
	return out
}

// placement is where a tour lands in the tree.
type placement struct {
	templateKey string
	instanceKey string
	name        string
	tourType    string
	template    *models.Template
	fallback    bool
}

func fallbackKey(name, tourType string) string {
	return name + "-" + tourType
}

func instanceKey(t models.Tour) string {
	return t.ID + "|" + t.TourDate + "|" + t.TimeSlot
}

func place(t models.Tour, templates map[string]models.Template) placement {
	p := placement{
		instanceKey: instanceKey(t),
		name:        t.Name,
		tourType:    t.TourType,
	}
	if p.name == "" {
		p.name = UnknownTourName
	}
	if p.tourType == "" {
		p.tourType = UnknownTourType
	}

	if t.ParentTemplateID != nil && *t.ParentTemplateID != "" {
		p.templateKey = *t.ParentTemplateID
		if tmpl, ok := templates[p.templateKey]; ok {
			p.template = &tmpl
			if tmpl.Name != "" {
				p.name = tmpl.Name
			}
			if tmpl.TourType != "" {
				p.tourType = tmpl.TourType
			}
		}
		return p
	}

	p.templateKey = fallbackKey(p.name, p.tourType)
	p.fallback = true
	return p
}

// resolveTour prefers the catalog row, then the embedded one, then a placeholder.
func resolveTour(b models.Booking, tours map[string]models.Tour) (models.Tour, bool) {
	if t, ok := tours[b.TourID]; ok && b.TourID != "" {
		return t, true
	}
	if b.Tour != nil {
		return *b.Tour, true
	}
	return models.Tour{
		ID:       b.TourID,
		Name:     UnknownTourName,
		TourType: UnknownTourType,
	}, false
}

type grouper struct {
	tree     *Tree
	tours    map[string]models.Tour
	tmpls    map[string]models.Template
	seen     []string
	instSeen map[string][]string
}

func (gr *grouper) node(p placement, tour models.Tour) (*TemplateGroup, *InstanceGroup) {
	tg, ok := gr.tree.Templates[p.templateKey]
	if !ok {
		tg = &TemplateGroup{
			Key:             p.templateKey,
			Name:            p.name,
			TourType:        p.tourType,
			Template:        p.template,
			KeyedByFallback: p.fallback,
			Instances:       make(map[string]*InstanceGroup),
		}
		gr.tree.Templates[p.templateKey] = tg
		gr.seen = append(gr.seen, p.templateKey)
	}

	ig, ok := tg.Instances[p.instanceKey]
	if !ok {
		t := tour
		ig = &InstanceGroup{
			Key:      p.instanceKey,
			Tour:     &t,
			Bookings: []BookingNode{},
		}
		tg.Instances[p.instanceKey] = ig
		gr.instSeen[p.templateKey] = append(gr.instSeen[p.templateKey], p.instanceKey)
	}
	return tg, ig
}

// Group builds the template → instance → booking tree. Bookings whose tour
// cannot be resolved are kept under an "Unknown Tour" node, and every catalog
// tour appears even without bookings.
func Group(bookings []models.Booking, catalog models.Catalog, now time.Time) *Tree {
	gr := &grouper{
		tree:     &Tree{Templates: make(map[string]*TemplateGroup)},
		tours:    make(map[string]models.Tour, len(catalog.Tours)),
		tmpls:    make(map[string]models.Template, len(catalog.Templates)),
		instSeen: make(map[string][]string),
	}
	for _, t := range catalog.Tours {
		gr.tours[t.ID] = t
	}
	for _, t := range catalog.Templates {
		gr.tmpls[t.ID] = t
	}

	for _, b := range bookings {
		tour, known := resolveTour(b, gr.tours)
		if known && b.Tour == nil {
			t := tour
			b.Tour = &t
		}

		var p placement
		if known {
			p = place(tour, gr.tmpls)
		} else {
			p = placement{
				templateKey: fallbackKey(UnknownTourName, UnknownTourType),
				instanceKey: instanceKey(tour),
				name:        UnknownTourName,
				tourType:    UnknownTourType,
				fallback:    true,
			}
		}

		tg, ig := gr.node(p, tour)
		cls := Classify(b, now)
		ig.Bookings = append(ig.Bookings, BookingNode{Booking: b, Classification: cls})

		ig.TotalBookings++
		tg.TotalBookings++
		switch b.Status {
		case models.BookingPending:
			ig.PendingCount++
			tg.PendingCount++
		case models.BookingConfirmed:
			ig.ConfirmedCount++
			ig.ConfirmedSeats += b.Participants()
		}
		if cls.Urgent {
			tg.UrgentCount++
		}
		if b.HasUnread {
			tg.UnreadCount++
		}
		if b.Status.IsRevenueGenerating() {
			tg.Revenue += NetRevenue(b)
		}
	}

	// second pass: catalog tours nobody booked yet, and catalog order
	var catalogOrder []string
	catalogInst := make(map[string][]string)
	for _, t := range catalog.Tours {
		p := place(t, gr.tmpls)
		gr.node(p, t)
		catalogOrder = append(catalogOrder, p.templateKey)
		catalogInst[p.templateKey] = append(catalogInst[p.templateKey], p.instanceKey)
	}

	gr.tree.Order = dedupe(catalogOrder, gr.seen)
	for key, tg := range gr.tree.Templates {
		tg.Order = dedupe(catalogInst[key], gr.instSeen[key])
		for _, ig := range tg.Instances {
			ig.Occupancy = occupancy(ig.ConfirmedCount, ig.Tour.MaxCapacity)
		}
	}
	return gr.tree
}

func occupancy(confirmed int, capacity *int) float64 {
	if capacity == nil || *capacity <= 0 {
		return 0
	}
	return float64(confirmed) / float64(*capacity)
}

func dedupe(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, l := range lists {
		for _, k := range l {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// SortByPriority orders groups for display: most urgent first, then most
// bookings, then most revenue. Ties keep catalog order.
func SortByPriority(t *Tree) []*TemplateGroup {
	groups := t.Ordered()
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.UrgentCount != b.UrgentCount {
			return a.UrgentCount > b.UrgentCount
		}
		if a.TotalBookings != b.TotalBookings {
			return a.TotalBookings > b.TotalBookings
		}
		return a.Revenue > b.Revenue
	})
	return groups
}
