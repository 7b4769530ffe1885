package po

// ShoppingCartPO one dish in an account's cart
type ShoppingCartPO struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	AccountID int64 `gorm:"not null;index"`
	DishID    int64 `gorm:"not null"`
	Quantity  int   `gorm:"not null"`

	Account *AccountPO `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName Specify table name
func (ShoppingCartPO) TableName() string {
	return "shopping_cart"
}
