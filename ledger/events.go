package ledger

// AssetCreated is emitted when CreateAsset issues a new asset.
type AssetCreated struct {
	Asset  AssetID   `json:"asset"`
	Owner  AccountID `json:"owner"`
	Amount Balance   `json:"amount"`
}

func (AssetCreated) EventKind() string { return "asset_created" }

// Transfer is emitted for every balance move between two accounts.
type Transfer struct {
	Asset  AssetID   `json:"asset"`
	From   AccountID `json:"from"`
	To     AccountID `json:"to"`
	Amount Balance   `json:"amount"`
}

func (Transfer) EventKind() string { return "transfer" }

// Approval is emitted when an owner raises a spender's allowance by Amount.
type Approval struct {
	Asset   AssetID   `json:"asset"`
	Owner   AccountID `json:"owner"`
	Spender AccountID `json:"spender"`
	Amount  Balance   `json:"amount"`
}

func (Approval) EventKind() string { return "approval" }
