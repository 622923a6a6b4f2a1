package domain

import (
	"net/url"
	"strconv"
	"time"
)

const (
	// MinAmount and MaxAmount bound the number of rounds in a game.
	MinAmount = 5
	MaxAmount = 50
	// ChoicesPerRound is the correct item plus DecoysPerRound decoys.
	ChoicesPerRound = 4
	DecoysPerRound  = ChoicesPerRound - 1
	// MaxImagesPerItem caps the screenshots kept for each item.
	MaxImagesPerItem = 6
)

// ImageRef points at a single screenshot.
type ImageRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Item is a selectable title: a round's correct answer or a decoy.
type Item struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Images []ImageRef `json:"images,omitempty"`
}

// Answer records one round. Correct is nil when Picked was the right item and
// holds the right item on a miss.
type Answer struct {
	Picked  Item  `json:"picked"`
	Correct *Item `json:"correct"`
}

// NewAnswer builds the answer for picking picked when expected was right.
func NewAnswer(picked, expected Item) Answer {
	if picked.ID == expected.ID {
		return Answer{Picked: picked}
	}
	right := expected
	return Answer{Picked: picked, Correct: &right}
}

// WasCorrect reports whether the round was answered correctly.
func (a Answer) WasCorrect() bool {
	return a.Correct == nil
}

// Expected returns the item that was right for the round.
func (a Answer) Expected() Item {
	if a.Correct != nil {
		return *a.Correct
	}
	return a.Picked
}

// Session is one persisted play-through.
type Session struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	OwnerName  string    `json:"ownerName"`
	Items      []Item    `json:"items"`
	Answers    []Answer  `json:"answers"`
	IsFinished bool      `json:"isFinished"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Amount is the number of rounds in the session.
func (s Session) Amount() int {
	return len(s.Items)
}

// CurrentIndex is the resume point: the round after the last recorded answer.
func (s Session) CurrentIndex() int {
	return len(s.Answers)
}

// ItemIDs lists the session items' ids in round order.
func (s Session) ItemIDs() []string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ID
	}
	return ids
}

// ItemImages holds the screenshots fetched for one item.
type ItemImages struct {
	ItemID string     `json:"itemId"`
	Images []ImageRef `json:"images"`
}

// RoundData is everything needed to materialize a session's rounds besides
// the session itself.
type RoundData struct {
	Images []ItemImages `json:"images"`
	Decoys []Item       `json:"decoys"`
}

// ImagesFor returns the screenshots for itemID, or nil when none were fetched.
func (d RoundData) ImagesFor(itemID string) []ImageRef {
	for _, entry := range d.Images {
		if entry.ItemID == itemID {
			return entry.Images
		}
	}
	return nil
}

// Round is a materialized question. It is never persisted.
type Round struct {
	Index   int        `json:"index"`
	Total   int        `json:"total"`
	Image   ImageRef   `json:"image"`
	Images  []ImageRef `json:"images"`
	Choices []Item     `json:"choices"`
	Correct Item       `json:"-"`
}

// ShareCard is what a results preview needs.
type ShareCard struct {
	SessionID string `json:"sessionId"`
	OwnerName string `json:"ownerName"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
}

// Query encodes the card as the query string consumed by preview renderers.
func (c ShareCard) Query() url.Values {
	v := url.Values{}
	v.Set("id", c.SessionID)
	v.Set("name", c.OwnerName)
	v.Set("correct", strconv.Itoa(c.Correct))
	v.Set("amount", strconv.Itoa(c.Total))
	return v
}
