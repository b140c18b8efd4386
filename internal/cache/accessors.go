package cache

import "yardops/pkg/domain"

func (c *Cache) Bookings() []*domain.Booking { return domain.ListAs[*domain.Booking](c) }

func (c *Cache) Collections() []*domain.Collection { return domain.ListAs[*domain.Collection](c) }

func (c *Cache) Containers() []*domain.Container { return domain.ListAs[*domain.Container](c) }

func (c *Cache) Drivers() []*domain.Driver { return domain.ListAs[*domain.Driver](c) }

func (c *Cache) Chassis() []*domain.Chassis { return domain.ListAs[*domain.Chassis](c) }

func (c *Cache) Locations() []*domain.Location { return domain.ListAs[*domain.Location](c) }

func (c *Cache) Statuses() []*domain.Status { return domain.ListAs[*domain.Status](c) }

func (c *Cache) ContainerTypes() []*domain.ContainerType {
	return domain.ListAs[*domain.ContainerType](c)
}

func (c *Cache) FindBooking(id string) (*domain.Booking, bool) {
	return domain.FindAs[*domain.Booking](c, id)
}

func (c *Cache) FindCollection(id string) (*domain.Collection, bool) {
	return domain.FindAs[*domain.Collection](c, id)
}

func (c *Cache) FindContainer(id string) (*domain.Container, bool) {
	return domain.FindAs[*domain.Container](c, id)
}

func (c *Cache) FindDriver(id string) (*domain.Driver, bool) {
	return domain.FindAs[*domain.Driver](c, id)
}

func (c *Cache) FindChassis(id string) (*domain.Chassis, bool) {
	return domain.FindAs[*domain.Chassis](c, id)
}

// BookingByNumber finds a booking by its number. Numbers are not enforced
// unique; the first in canonical order wins.
func (c *Cache) BookingByNumber(number string) (*domain.Booking, bool) {
	for _, b := range c.Bookings() {
		if b.Number == number {
			return b, true
		}
	}
	return nil, false
}
