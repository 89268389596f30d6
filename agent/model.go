package agent

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

// Participant mirrors the ledger record of an address as seen through events.
type Participant struct {
	Address  string `gorm:"primary_key" json:"address"`
	Weight   uint64 `json:"weight"`
	Voted    bool   `json:"voted"`
	Delegate string `json:"delegate"`
	Choice   int64  `json:"choice"`
	Height   uint64 `json:"height"`
}

type GrantRecord struct {
	Id          uint64 `gorm:"primary_key" json:"id"`
	Chairperson string `json:"chairperson"`
	Voter       string `gorm:"index" json:"voter"`
	Weight      uint64 `json:"weight"`
	Height      uint64 `json:"height"`
}

type DelegationRecord struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	From   string `gorm:"column:from_addr;index" json:"from"`
	To     string `gorm:"column:to_addr" json:"to"`
	Target string `gorm:"index" json:"target"`
	Weight uint64 `json:"weight"`
	// Proposal is -1 while the weight waits on Target.
	Proposal int64  `json:"proposal"`
	Height   uint64 `json:"height"`
}

type BallotRecord struct {
	Id       uint64 `gorm:"primary_key" json:"id"`
	Voter    string `gorm:"index" json:"voter"`
	Proposal int64  `gorm:"index" json:"proposal"`
	Weight   uint64 `json:"weight"`
	Height   uint64 `json:"height"`
}
