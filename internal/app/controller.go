package app

import (
	"context"
	"errors"
	"fmt"

	"anime-quiz-service/internal/domain"
)

// RoundState is the controller's position in the round cycle.
type RoundState int

const (
	StatePresenting RoundState = iota
	StateSubmitting
	StateFinished
	StateExited
)

func (s RoundState) String() string {
	switch s {
	case StatePresenting:
		return "presenting"
	case StateSubmitting:
		return "submitting"
	case StateFinished:
		return "finished"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("RoundState(%d)", int(s))
	}
}

// Controller drives one player through a session a round at a time. Its
// position is derived from the persisted answer count, never tracked apart
// from it, and only advances once a submission is acknowledged.
// A Controller is not safe for concurrent use.
type Controller struct {
	service *GameService
	ownerID string
	session domain.Session
	data    domain.RoundData
	answers []domain.Answer
	state   RoundState
}

// NewController loads the session and its round data and resumes at the
// first unanswered round.
func (s *GameService) NewController(ctx context.Context, ownerID, sessionID string) (*Controller, error) {
	session, err := s.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	data, err := s.rounds.GetRoundData(ctx, session.ID, session.ItemIDs())
	if err != nil {
		return nil, fmt.Errorf("load round data: %w", err)
	}
	if len(data.Decoys) < session.Amount()*domain.DecoysPerRound {
		return nil, fmt.Errorf("%w: %d decoys for %d rounds", domain.ErrInsufficientData, len(data.Decoys), session.Amount())
	}

	c := &Controller{
		service: s,
		ownerID: ownerID,
		session: session,
		data:    data,
		answers: append([]domain.Answer{}, session.Answers...),
		state:   StatePresenting,
	}
	if session.IsFinished || len(c.answers) >= session.Amount() {
		c.state = StateFinished
	}
	return c, nil
}

func (c *Controller) State() RoundState { return c.state }

// Index is the round currently presented, equal to the recorded answer count.
func (c *Controller) Index() int { return len(c.answers) }

func (c *Controller) Total() int { return c.session.Amount() }

func (c *Controller) SessionID() string { return c.session.ID }

// Answers returns a copy of the acknowledged answers.
func (c *Controller) Answers() []domain.Answer {
	return append([]domain.Answer{}, c.answers...)
}

// Score counts the correct answers acknowledged so far.
func (c *Controller) Score() int {
	return Score(c.Total(), c.answers)
}

// Round materializes the round at Index.
func (c *Controller) Round() (domain.Round, error) {
	if c.state != StatePresenting && c.state != StateSubmitting {
		return domain.Round{}, domain.ErrNoRound
	}
	return BuildRound(c.session.Items, c.data, c.Index())
}

// Pick answers the current round with the choice itemID. On failure the
// controller stays in StateSubmitting at the same index and Pick may simply
// be called again. When the store rejects the submission as out of step, the
// controller reloads the session and resumes from the stored answers.
func (c *Controller) Pick(ctx context.Context, itemID string) (domain.Answer, error) {
	round, err := c.Round()
	if err != nil {
		return domain.Answer{}, err
	}
	var picked *domain.Item
	for i := range round.Choices {
		if round.Choices[i].ID == itemID {
			picked = &round.Choices[i]
			break
		}
	}
	if picked == nil {
		return domain.Answer{}, fmt.Errorf("%w: %q", domain.ErrChoiceNotFound, itemID)
	}

	answer := domain.NewAnswer(*picked, round.Correct)
	isFinished := round.Index == c.Total()-1
	next := append(c.Answers(), answer)

	c.state = StateSubmitting
	if err := c.service.SubmitAnswers(ctx, c.ownerID, c.session.ID, next, isFinished); err != nil {
		if outOfStep(err) {
			if syncErr := c.resync(ctx); syncErr != nil {
				return domain.Answer{}, errors.Join(err, syncErr)
			}
		}
		return domain.Answer{}, err
	}

	c.answers = next
	if isFinished {
		c.state = StateFinished
	} else {
		c.state = StatePresenting
	}
	return answer, nil
}

// resync replaces the local answers with the stored ones, e.g. after a
// write that landed but whose acknowledgement was lost.
func (c *Controller) resync(ctx context.Context) error {
	session, err := c.service.ownedSession(ctx, c.ownerID, c.session.ID)
	if err != nil {
		return err
	}
	c.session = session
	c.answers = append([]domain.Answer{}, session.Answers...)
	switch {
	case session.IsFinished || len(c.answers) >= session.Amount():
		c.state = StateFinished
	default:
		c.state = StatePresenting
	}
	return nil
}

func outOfStep(err error) bool {
	return errors.Is(err, domain.ErrInvalidAnswers) ||
		errors.Is(err, domain.ErrAnswerConflict) ||
		errors.Is(err, domain.ErrSessionFinished)
}

// Exit abandons the game: the session is deleted whatever its progress.
func (c *Controller) Exit(ctx context.Context) error {
	if c.state == StateExited {
		return nil
	}
	if err := c.service.DeleteGame(ctx, c.ownerID, c.session.ID); err != nil {
		return err
	}
	c.state = StateExited
	return nil
}

// BuildRound assembles round index: the correct item first, then its three
// decoys taken from decoys[index*3 : index*3+3]. Choices are not shuffled.
func BuildRound(items []domain.Item, data domain.RoundData, index int) (domain.Round, error) {
	if index < 0 || index >= len(items) {
		return domain.Round{}, fmt.Errorf("%w: round %d of %d", domain.ErrNoRound, index, len(items))
	}
	start := index * domain.DecoysPerRound
	end := start + domain.DecoysPerRound
	if end > len(data.Decoys) {
		return domain.Round{}, fmt.Errorf("%w: no decoys for round %d", domain.ErrInsufficientData, index)
	}

	correct := items[index]
	choices := make([]domain.Item, 0, domain.ChoicesPerRound)
	choices = append(choices, domain.Item{ID: correct.ID, Name: correct.Name})
	choices = append(choices, data.Decoys[start:end]...)

	images := data.ImagesFor(correct.ID)
	if len(images) == 0 {
		images = correct.Images
	}
	if len(images) > domain.MaxImagesPerItem {
		images = images[:domain.MaxImagesPerItem]
	}
	round := domain.Round{
		Index:   index,
		Total:   len(items),
		Images:  images,
		Choices: choices,
		Correct: choices[0],
	}
	if len(images) > 0 {
		round.Image = images[0]
	}
	return round, nil
}
