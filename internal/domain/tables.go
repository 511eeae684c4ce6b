package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOprLog{},
	// Accounts
	&User{},
	// Catalog
	&Category{},
	&Product{},
	// Trade
	&Cart{},
	&CartItem{},
	&Order{},
	&Review{},
}
