package order

import (
	"orderflow/domain/order"
	"orderflow/domain/status"
)

func (a AddressInput) toDomain() order.Address {
	lat, lng := a.Latitude, a.Longitude
	if len(a.Coordinates) == 2 {
		lat, lng = a.Coordinates[0], a.Coordinates[1]
	}
	return order.Address{
		City:        a.City,
		Street:      a.Street,
		House:       a.House,
		Apartment:   a.Apartment,
		Entrance:    a.Entrance,
		Floor:       a.Floor,
		Comment:     a.Comment,
		PrivateHome: a.IsPrivateHome,
		Latitude:    lat,
		Longitude:   lng,
	}
}

func toLineItems(items []LineItemInput) []order.LineItem {
	out := make([]order.LineItem, len(items))
	for i, item := range items {
		out[i] = order.LineItem{
			DishID:    item.DishID,
			Quantity:  item.QuantityOrder,
			UnitPrice: item.PricePerUnit,
		}
	}
	return out
}

func (c PlaceOrderCommand) draft() order.Draft {
	return order.Draft{
		Address:       c.Address.toDomain(),
		Window:        order.DeliveryWindow{Start: c.StartDesiredDeliveryTime, End: c.EndDesiredDeliveryTime},
		Items:         toLineItems(c.Items),
		AccountID:     c.AccountID,
		ShippingCost:  c.ShippingCost,
		GoodsCost:     c.GoodsCost,
		PaymentMethod: c.PaymentMethod,
		Paid:          c.IsPaid,
		PrepareChange: c.PrepareChangeMoney,
		ClientComment: c.CommentFromClient,
		ClientName:    c.NameClient,
		ClientPhone:   c.NumberPhoneClient,
	}
}

func (c ManagerOrderCommand) draft() order.Draft {
	return order.Draft{
		Address:        c.Address.toDomain(),
		Window:         order.DeliveryWindow{Start: c.StartDesiredDeliveryTime, End: c.EndDesiredDeliveryTime},
		Items:          toLineItems(c.Items),
		ShippingCost:   c.ShippingCost,
		GoodsCost:      c.GoodsCost,
		PaymentMethod:  c.PaymentMethod,
		Paid:           c.IsPaid,
		PrepareChange:  c.PrepareChangeMoney,
		ManagerComment: c.CommentFromManager,
		ClientName:     c.NameClient,
		ClientPhone:    c.NumberPhoneClient,
	}
}

func (q ListOrdersQuery) filter() order.ListFilter {
	f := order.ListFilter{
		PlacedFrom:     q.PlacedFrom,
		PlacedTo:       q.PlacedTo,
		Paid:           q.Paid,
		PaymentMethods: q.PaymentMethods,
		Search:         q.Search,
	}
	for _, ref := range q.Statuses {
		if id, ok := ref.ID(); ok {
			f.StatusIDs = append(f.StatusIDs, id)
		} else {
			f.IncludeUnassigned = true
		}
	}
	return f
}

func toStatusView(st *status.OrderStatus) *StatusView {
	return &StatusView{
		ID:                    st.ID(),
		Name:                  st.Name(),
		SequenceNumber:        st.Sequence(),
		IsFinalResultPositive: st.FinalOutcome().Flag(),
		IsAvailableClient:     st.ClientVisible(),
	}
}

// toOrderDetail catalog 用于展开状态对象；状态不在快照中时 Status 为 nil
func toOrderDetail(o *order.Order, catalog *status.Catalog) *OrderDetail {
	addr := o.Address()
	items := o.Items()

	detail := &OrderDetail{
		ID:                       o.OrderID(),
		OrderNumber:              o.Number(),
		OrderPlacementTime:       o.PlacedAt(),
		StartDesiredDeliveryTime: o.Window().Start,
		EndDesiredDeliveryTime:   o.Window().End,
		OrderCompletionTime:      o.CompletedAt(),
		AccountID:                o.AccountID(),
		OrderStatusID:            StatusID{Ref: o.Status()},
		ClientStatus:             o.ClientLabel(),
		ShippingCost:             o.ShippingCost(),
		GoodsCost:                o.GoodsCost(),
		TotalCost:                o.TotalCost(),
		PaymentMethod:            o.PaymentMethod(),
		IsPaid:                   o.Paid(),
		PrepareChangeMoney:       o.PrepareChange(),
		CommentFromClient:        o.ClientComment(),
		CommentFromManager:       o.ManagerComment(),
		NameClient:               o.ClientName(),
		NumberPhoneClient:        o.ClientPhone(),
		Address: AddressView{
			ID:            addr.ID,
			City:          addr.City,
			Street:        addr.Street,
			House:         addr.House,
			Apartment:     addr.Apartment,
			Entrance:      addr.Entrance,
			Floor:         addr.Floor,
			Comment:       addr.Comment,
			IsPrivateHome: addr.PrivateHome,
			Latitude:      addr.Latitude,
			Longitude:     addr.Longitude,
			Coordinates:   []float64{addr.Latitude, addr.Longitude},
		},
		Items: make([]LineItemView, len(items)),
	}

	if id, ok := o.Status().ID(); ok && catalog != nil {
		if st, found := catalog.Lookup(id); found {
			detail.Status = toStatusView(st)
		}
	}
	for i, item := range items {
		detail.Items[i] = LineItemView{
			ID:            item.ID,
			DishID:        item.DishID,
			QuantityOrder: item.Quantity,
			PricePerUnit:  item.UnitPrice,
			Subtotal:      item.Subtotal(),
		}
	}
	return detail
}

func toOrderDetails(orders []*order.Order, catalog *status.Catalog) []*OrderDetail {
	out := make([]*OrderDetail, len(orders))
	for i, o := range orders {
		out[i] = toOrderDetail(o, catalog)
	}
	return out
}
