package models

// Trip is a single scheduled bus run; its seats are numbered 1..TotalSeats.
type Trip struct {
	ID          string  `bson:"id" json:"id"`
	OperatorID  string  `bson:"operatorId" json:"operatorId"`
	RouteName   string  `bson:"routeName" json:"routeName"`
	TotalSeats  int     `bson:"totalSeats" json:"totalSeats"`
	FarePerSeat float64 `bson:"farePerSeat" json:"farePerSeat"`
	Currency    string  `bson:"currency" json:"currency"`
}
