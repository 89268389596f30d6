package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventGrantRightType = "grant_right"
	EventDelegateType   = "delegate"
	EventVoteType       = "vote"
)

type EventGrantRight struct {
	Chairperson string `json:"chairperson"`
	Voter       string `json:"voter"`
	Weight      uint64 `json:"weight"`
}

type EventDelegate struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Target string `json:"target"`
	Weight uint64 `json:"weight"`
	// Proposal is the tally the weight was folded into, or NoChoice when it
	// is pending on Target.
	Proposal int64 `json:"proposal"`
}

type EventVote struct {
	Voter    string `json:"voter"`
	Proposal int64  `json:"proposal"`
	Weight   uint64 `json:"weight"`
}

func EncodeEventGrantRight(event *EventGrantRight) abci.Event {
	return abci.Event{
		Type: EventGrantRightType,
		Attributes: []abci.EventAttribute{
			{Key: "chairperson", Value: event.Chairperson, Index: false},
			{Key: "voter", Value: event.Voter, Index: true},
			{Key: "weight", Value: fmt.Sprintf("%v", event.Weight), Index: false},
		},
	}
}

func ParseEventGrantRight(originEvent abci.Event) *EventGrantRight {
	event := &EventGrantRight{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "chairperson":
			event.Chairperson = v.Value
		case "voter":
			event.Voter = v.Value
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		}
	}
	return event
}

func EncodeEventDelegate(event *EventDelegate) abci.Event {
	return abci.Event{
		Type: EventDelegateType,
		Attributes: []abci.EventAttribute{
			{Key: "from", Value: event.From, Index: true},
			{Key: "to", Value: event.To, Index: false},
			{Key: "target", Value: event.Target, Index: true},
			{Key: "weight", Value: fmt.Sprintf("%v", event.Weight), Index: false},
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: false},
		},
	}
}

func ParseEventDelegate(originEvent abci.Event) *EventDelegate {
	event := &EventDelegate{Proposal: NoChoice}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "from":
			event.From = v.Value
		case "to":
			event.To = v.Value
		case "target":
			event.Target = v.Value
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		case "proposal":
			proposal, err := strconv.ParseInt(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		}
	}
	return event
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "voter", Value: event.Voter, Index: true},
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "weight", Value: fmt.Sprintf("%v", event.Weight), Index: false},
		},
	}
}

func ParseEventVote(originEvent abci.Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "voter":
			event.Voter = v.Value
		case "proposal":
			proposal, err := strconv.ParseInt(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		}
	}
	return event
}
