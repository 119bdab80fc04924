package service

import (
	"termin/internal/models"
)

// ShopCatalog is the static shop inventory: the services offered and
// the barbers on staff. Loaded from the catalog config file at startup
// and treated as read-only afterwards.
type ShopCatalog struct {
	Services []models.Service `yaml:"services"`
	Barbers  []models.Barber  `yaml:"barbers"`
}

func (c *ShopCatalog) ServiceByID(id string) (models.Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func (c *ShopCatalog) BarberByID(id string) (models.Barber, bool) {
	for _, b := range c.Barbers {
		if b.ID == id {
			return b, true
		}
	}
	return models.Barber{}, false
}
