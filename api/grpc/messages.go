package grpcapi

// Wire messages for the order-entry and market-data API. Prices and
// quantities are decimal strings; floats would lose the exactness the
// matching engine depends on.

type PlaceOrderRequest struct {
	Instrument string `json:"instrument"`
	UserID     string `json:"user_id"`
	Side       string `json:"side"` // BUY or SELL
	Price      string `json:"price"`
	Qty        string `json:"qty"`
}

type PlaceOrderResponse struct {
	OrderID string        `json:"order_id"`
	Seq     uint64        `json:"seq"`
	Status  string        `json:"status"`
	Trades  []Trade       `json:"trades"`
	Updates []OrderUpdate `json:"updates"`
}

type Trade struct {
	TradeID     string `json:"trade_id"`
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	ExecutedAt  int64  `json:"executed_at"`
}

type OrderUpdate struct {
	OrderID string `json:"order_id"`
	Filled  string `json:"filled"`
	Status  string `json:"status"`
}

type CancelOrderRequest struct {
	Instrument string `json:"instrument"`
	OrderID    string `json:"order_id"`
}

type CancelOrderResponse struct {
	OrderID string `json:"order_id"`
	Found   bool   `json:"found"`
	Status  string `json:"status"`
}

type BestBidAskRequest struct {
	Instrument string `json:"instrument"`
}

type BestBidAskResponse struct {
	BestBid *string `json:"best_bid"`
	BestAsk *string `json:"best_ask"`
}

type TopOfBookRequest struct {
	Instrument string `json:"instrument"`
	Depth      int    `json:"depth"`
}

type BookRow struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

type TopOfBookResponse struct {
	Bids []BookRow `json:"bids"`
	Asks []BookRow `json:"asks"`
}
