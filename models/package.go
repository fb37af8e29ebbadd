package models

// Customization is an optional add-on a client may select on a package.
type Customization struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Price int64  `bson:"price" json:"price"`
}

// Package is a vendor's priced photography offer, charged per day.
type Package struct {
	ID             string          `bson:"id" json:"id"`
	VendorID       string          `bson:"vendorId" json:"vendorId"`
	Name           string          `bson:"name" json:"name"`
	ServiceType    string          `bson:"serviceType" json:"serviceType"`
	Price          int64           `bson:"price" json:"price"` // per day
	Customizations []Customization `bson:"customizations" json:"customizations"`
}

// CustomizationByID returns the add-on with the given id.
func (p Package) CustomizationByID(id string) (Customization, bool) {
	for _, c := range p.Customizations {
		if c.ID == id {
			return c, true
		}
	}
	return Customization{}, false
}
