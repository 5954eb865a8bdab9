package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"

	SaleStatusActive  = "active"
	SaleStatusExpired = "expired"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Stock threshold above which an updated product is marked active again.
const ProductActiveStockThreshold = 10

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Name         string    `gorm:"not null"                 json:"name"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Description string          `json:"description"`
	CategoryID  uint            `gorm:"index"                       json:"category_id"`
	Price       decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"-"`
	Stock       int             `gorm:"not null;check:stock >= 0"   json:"stock"`
	Status      string          `gorm:"not null;default:active"     json:"status"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductImage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"index;not null"           json:"product_id"`
	URL       string `gorm:"not null"                 json:"url"`
}

type Sale struct {
	ID                 uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	ProductID          uint            `gorm:"index;not null"              json:"product_id"`
	OriginalPrice      decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"-"`
	SalePrice          decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"-"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null"  json:"-"`
	QuantityAvailable  int             `gorm:"not null"                    json:"quantity_available"`
	QuantitySold       int             `gorm:"not null;default:0"          json:"quantity_sold"`
	StartDate          time.Time       `gorm:"not null"                    json:"start_date"`
	EndDate            time.Time       `gorm:"not null"                    json:"end_date"`
	Status             string          `gorm:"not null;default:active"     json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int  `gorm:"not null;check:quantity > 0"                json:"quantity"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                  json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_fav_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_fav_user_product" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Number    string          `gorm:"unique;not null"             json:"number"`
	UserID    uint            `gorm:"index;not null"              json:"user_id"`
	Total     decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"-"`
	Status    string          `gorm:"not null;default:new"        json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem snapshots product name and unit price at purchase time, so later
// product edits never alter historical orders.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID     uint            `gorm:"index;not null"              json:"order_id"`
	ProductID   uint            `gorm:"not null"                    json:"product_id"`
	ProductName string          `gorm:"not null"                    json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"-"`
	Quantity    int             `gorm:"not null"                    json:"quantity"`
}

type OrderRating struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	OrderID   uint      `gorm:"not null;uniqueIndex:idx_rating_user_order" json:"order_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_order" json:"user_id"`
	Stars     int       `gorm:"not null;check:stars >= 1 AND stars <= 5"   json:"stars"`
	Text      string    `json:"text"`
	Images    string    `json:"images"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotificationFavorite    = "favorite"
	NotificationCart        = "cart"
	NotificationOrder       = "order"
	NotificationOrderStatus = "order_status"
	NotificationSale        = "sale"
)

func ValidNotificationType(t string) bool {
	switch t {
	case NotificationFavorite, NotificationCart, NotificationOrder, NotificationOrderStatus, NotificationSale:
		return true
	}
	return false
}

type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Type      string    `gorm:"not null"                 json:"type"`
	Message   string    `gorm:"not null"                 json:"message"`
	IsRead    bool      `gorm:"default:false"            json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
