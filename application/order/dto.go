package order

import (
	"bytes"
	"strings"
	"time"

	"orderflow/domain/status"

	"github.com/shopspring/decimal"
)

// StatusID 订单状态引用的外部编码：null、缺省、"null"、0 均表示未分配
type StatusID struct {
	Ref status.Ref
}

func (s *StatusID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	ref, err := status.ParseRef(raw)
	if err != nil {
		return err
	}
	s.Ref = ref
	return nil
}

func (s StatusID) MarshalJSON() ([]byte, error) {
	if !s.Ref.IsAssigned() {
		return []byte("null"), nil
	}
	return []byte(s.Ref.String()), nil
}

// AddressInput 配送地址入参
type AddressInput struct {
	City          string  `json:"city" validate:"required,max=100"`
	Street        string  `json:"street" validate:"required,max=255"`
	House         string  `json:"house" validate:"required,max=50"`
	Apartment     *string `json:"apartment"`
	Entrance      *string `json:"entrance"`
	Floor         *string `json:"floor"`
	Comment       *string `json:"comment"`
	IsPrivateHome bool    `json:"isPrivateHome"`
	Latitude      float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude     float64 `json:"longitude" validate:"gte=-180,lte=180"`

	// [纬度, 经度]，给出时覆盖 latitude/longitude
	Coordinates []float64 `json:"coordinates,omitempty" validate:"omitempty,len=2"`
}

// LineItemInput 单价在下单时确定
type LineItemInput struct {
	DishID        int64           `json:"dishId" validate:"gt=0"`
	QuantityOrder int             `json:"quantityOrder" validate:"gt=0"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
}

// PlaceOrderCommand 客户下单
type PlaceOrderCommand struct {
	Address                  AddressInput     `json:"address"`
	StartDesiredDeliveryTime *time.Time       `json:"startDesiredDeliveryTime"`
	EndDesiredDeliveryTime   *time.Time       `json:"endDesiredDeliveryTime"`
	Items                    []LineItemInput  `json:"items" validate:"min=1,dive"`
	AccountID                *int64           `json:"accountId" validate:"omitempty,gt=0"`
	ShippingCost             decimal.Decimal  `json:"shippingCost"`
	GoodsCost                decimal.Decimal  `json:"goodsCost"`
	PaymentMethod            string           `json:"paymentMethod" validate:"required,max=50"`
	IsPaid                   bool             `json:"isPaid"`
	PrepareChangeMoney       *decimal.Decimal `json:"prepareChangeMoney"`
	CommentFromClient        *string          `json:"commentFromClient"`
	NameClient               string           `json:"nameClient" validate:"required,max=255"`
	NumberPhoneClient        string           `json:"numberPhoneClient" validate:"required,max=32"`
}

// ManagerOrderCommand 经理创建或更新订单
type ManagerOrderCommand struct {
	Address                  AddressInput     `json:"address"`
	StartDesiredDeliveryTime *time.Time       `json:"startDesiredDeliveryTime"`
	EndDesiredDeliveryTime   *time.Time       `json:"endDesiredDeliveryTime"`
	Items                    []LineItemInput  `json:"items" validate:"min=1,dive"`
	OrderStatusID            StatusID         `json:"orderStatusId"`
	ShippingCost             decimal.Decimal  `json:"shippingCost"`
	GoodsCost                decimal.Decimal  `json:"goodsCost"`
	PaymentMethod            string           `json:"paymentMethod" validate:"required,max=50"`
	IsPaid                   bool             `json:"isPaid"`
	PrepareChangeMoney       *decimal.Decimal `json:"prepareChangeMoney"`
	CommentFromManager       *string          `json:"commentFromManager"`
	NameClient               string           `json:"nameClient" validate:"max=255"`
	NumberPhoneClient        string           `json:"numberPhoneClient" validate:"max=32"`
}

// BulkStatusCommand 一次调用只有一个目标状态
type BulkStatusCommand struct {
	IDs           []int64  `json:"ids" validate:"min=1,dive,gt=0"`
	OrderStatusID StatusID `json:"orderStatusId"`
}

// BulkPaymentCommand IsPaid 必须显式给出
type BulkPaymentCommand struct {
	IDs    []int64 `json:"ids" validate:"min=1,dive,gt=0"`
	IsPaid *bool   `json:"isPaid" validate:"required"`
}

// ListOrdersQuery 经理端订单列表筛选与分页
type ListOrdersQuery struct {
	PlacedFrom     *time.Time   `json:"placedFrom"`
	PlacedTo       *time.Time   `json:"placedTo"`
	Statuses       []status.Ref `json:"-"`
	Paid           *bool        `json:"isPaid"`
	PaymentMethods []string     `json:"paymentMethods"`
	Search         string       `json:"search" validate:"max=100"`
	Page           int          `json:"page" validate:"gte=0"`
	Limit          int          `json:"limit" validate:"gte=0,lte=100"`
}

// Default pagination
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// PlacementResult 下单结果
type PlacementResult struct {
	Success     bool   `json:"success"`
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// BulkResult 批量操作结果；部分 ID 未匹配只产生警告
type BulkResult struct {
	Success  bool     `json:"success"`
	Updated  int64    `json:"updated"`
	Warnings []string `json:"warnings,omitempty"`
}

type DeleteResult struct {
	Success          bool     `json:"success"`
	DeletedOrders    int64    `json:"deletedOrders"`
	DeletedAddresses int64    `json:"deletedAddresses"`
	Warnings         []string `json:"warnings,omitempty"`
}

func (r *BulkResult) ResultWarnings() []string   { return r.Warnings }
func (r *DeleteResult) ResultWarnings() []string { return r.Warnings }

// OrderList 分页结果
type OrderList struct {
	Total       int64          `json:"total"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"limit"`
	Data        []*OrderDetail `json:"data"`
}

// StatusView 订单引用的目录条目
type StatusView struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	SequenceNumber        int    `json:"sequenceNumber"`
	IsFinalResultPositive *bool  `json:"isFinalResultPositive"`
	IsAvailableClient     bool   `json:"isAvailableClient"`
}

type AddressView struct {
	ID            int64     `json:"id"`
	City          string    `json:"city"`
	Street        string    `json:"street"`
	House         string    `json:"house"`
	Apartment     *string   `json:"apartment"`
	Entrance      *string   `json:"entrance"`
	Floor         *string   `json:"floor"`
	Comment       *string   `json:"comment"`
	IsPrivateHome bool      `json:"isPrivateHome"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Coordinates   []float64 `json:"coordinates"`
}

type LineItemView struct {
	ID            int64           `json:"id"`
	DishID        int64           `json:"dishId"`
	QuantityOrder int             `json:"quantityOrder"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// OrderDetail 订单完整视图
type OrderDetail struct {
	ID                       int64            `json:"id"`
	OrderNumber              string           `json:"orderNumber"`
	OrderPlacementTime       time.Time        `json:"orderPlacementTime"`
	StartDesiredDeliveryTime *time.Time       `json:"startDesiredDeliveryTime"`
	EndDesiredDeliveryTime   *time.Time       `json:"endDesiredDeliveryTime"`
	OrderCompletionTime      *time.Time       `json:"orderCompletionTime"`
	AccountID                *int64           `json:"accountId"`
	OrderStatusID            StatusID         `json:"orderStatusId"`
	Status                   *StatusView      `json:"status"`
	ClientStatus             string           `json:"clientStatus"`
	ShippingCost             decimal.Decimal  `json:"shippingCost"`
	GoodsCost                decimal.Decimal  `json:"goodsCost"`
	TotalCost                decimal.Decimal  `json:"totalCost"`
	PaymentMethod            string           `json:"paymentMethod"`
	IsPaid                   bool             `json:"isPaid"`
	PrepareChangeMoney       *decimal.Decimal `json:"prepareChangeMoney"`
	CommentFromClient        *string          `json:"commentFromClient"`
	CommentFromManager       *string          `json:"commentFromManager"`
	NameClient               string           `json:"nameClient"`
	NumberPhoneClient        string           `json:"numberPhoneClient"`
	Address                  AddressView      `json:"address"`
	Items                    []LineItemView   `json:"items"`
}

// ParseStatusList 解析以逗号分隔的状态 ID 列表，"null" 表示未分配
func ParseStatusList(raw string) ([]status.Ref, error) {
	var refs []status.Ref
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ref, err := status.ParseRef(part)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
