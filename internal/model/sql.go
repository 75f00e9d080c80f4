package model

import "database/sql/driver"

// Value stores the status as its plain string form.
func (s OrderStatus) Value() (driver.Value, error) { return string(s), nil }

// Value stores the status as its plain string form.
func (s PaymentStatus) Value() (driver.Value, error) { return string(s), nil }

// Value stores the reaction as its plain string form.
func (k ReactionKind) Value() (driver.Value, error) { return string(k), nil }
