package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey"                       json:"id"`
	FirstName    string    `gorm:"size:50;not null"                 json:"first_name"`
	LastName     string    `gorm:"size:50;not null"                 json:"last_name"`
	Username     string    `gorm:"size:20;uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"size:254;uniqueIndex;not null"    json:"email"`
	PasswordHash string    `gorm:"not null"                         json:"-"`
	Role         string    `gorm:"size:16;not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"             json:"id"`
	UserID    uint   `gorm:"index;not null"         json:"user_id"`
	SessionID string `gorm:"size:36;index;not null" json:"session_id"`
	TokenHash string `gorm:"size:64;uniqueIndex"    json:"-"`
	JTI       string `gorm:"size:36;uniqueIndex"    json:"jti"`
	ExpiresAt int64  `gorm:"not null"               json:"expires_at"`
	Revoked   bool   `gorm:"default:false"          json:"revoked"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey"                                    json:"id"`
	Name        string          `gorm:"size:200;not null"                             json:"name"`
	Description string          `gorm:"type:text"                                     json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"                   json:"price"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	ImagePath   string          `gorm:"size:255"                                      json:"image_path,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CartItem struct {
	ID        uint   `gorm:"primaryKey"                                         json:"id"`
	SessionID string `gorm:"size:36;not null;uniqueIndex:idx_cart_session_product" json:"-"`
	UserID    uint   `gorm:"index;not null"                                     json:"user_id"`
	ProductID uint   `gorm:"not null;uniqueIndex:idx_cart_session_product"      json:"product_id"`
	Quantity  int    `gorm:"not null;check:chk_cart_items_quantity,quantity > 0" json:"quantity"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	UserID           uint            `gorm:"index;not null"              json:"user_id"`
	SessionID        string          `gorm:"size:36;not null"            json:"-"`
	Status           string          `gorm:"size:16;index;not null"      json:"status"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Currency         string          `gorm:"size:3;not null"             json:"currency"`
	PaymentSessionID string          `gorm:"size:255;index"              json:"payment_session_id"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID"          json:"items"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Name      string          `gorm:"size:200;not null"           json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null"                    json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

const (
	MediaImage = "image"
	MediaVideo = "video"
)

type MediaAsset struct {
	ID           uint      `gorm:"primaryKey"         json:"id"`
	Kind         string    `gorm:"size:8;not null"    json:"kind"`
	OriginalName string    `gorm:"size:255;not null"  json:"original_name"`
	StoragePath  string    `gorm:"size:255;not null"  json:"storage_path"`
	Username     string    `gorm:"size:20;index"      json:"username"`
	CreatedAt    time.Time `gorm:"index"              json:"created_at"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey"    json:"id"`
	Username  string    `gorm:"size:20;index" json:"username"`
	Body      string    `gorm:"type:text"     json:"body"`
	CreatedAt time.Time `gorm:"index"         json:"created_at"`
}

func All() []any {
	return []any{
		&User{}, &RefreshToken{}, &Product{}, &CartItem{},
		&Order{}, &OrderItem{}, &MediaAsset{}, &Comment{},
	}
}
