// Package rating records reviews and keeps each item's running average rating.
package rating

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/commands"
	"marketplace-service/internal/domain"
	"marketplace-service/internal/events"
	"marketplace-service/internal/repository"
)

type Updater struct {
	store     repository.Store
	publisher events.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewUpdater(store repository.Store, publisher events.EventPublisher, logger *zap.Logger) *Updater {
	return &Updater{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordRating folds one rating into an item's average. The store applies
// it as a single write so concurrent ratings never read a stale count.
func (u *Updater) RecordRating(ctx context.Context, itemID uuid.UUID, rating int) (*domain.Item, error) {
	if !domain.ValidRating(rating) {
		return nil, domain.ErrInvalidRating
	}

	var item *domain.Item
	err := u.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		item, err = tx.ApplyRating(ctx, itemID, rating, u.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RecordReview stores a buyer's comment and, when it carries a rating,
// updates the item aggregate in the same unit of work. A linked order must
// belong to the buyer and contain the item.
func (u *Updater) RecordReview(ctx context.Context, cmd commands.RecordReviewCommand) (*domain.Comment, error) {
	now := u.now()
	comment, err := domain.NewComment(cmd.ItemID, cmd.BuyerID, cmd.Text, cmd.Rating, cmd.OrderID, now)
	if err != nil {
		return nil, err
	}

	var item *domain.Item
	err = u.store.WithTx(ctx, func(tx repository.Tx) error {
		if comment.OrderID != nil {
			order, err := tx.GetOrder(ctx, *comment.OrderID)
			if err != nil {
				return err
			}
			if order.BuyerID != comment.BuyerID || !order.ContainsItem(comment.ItemID) {
				return domain.ErrNotAuthorized
			}
		}

		if err := tx.InsertComment(ctx, comment); err != nil {
			return err
		}

		if comment.Rating == nil {
			item, err = tx.GetItem(ctx, comment.ItemID)
			return err
		}
		item, err = tx.ApplyRating(ctx, comment.ItemID, *comment.Rating, now)
		return err
	})
	if err != nil {
		u.logger.Info("Review rejected",
			zap.String("item_id", cmd.ItemID.String()),
			zap.String("buyer_id", cmd.BuyerID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	u.logger.Info("Review recorded",
		zap.String("comment_id", comment.ID.String()),
		zap.String("item_id", item.ID.String()),
		zap.Float64("avg_rating", item.AvgRating),
		zap.Int("comments_count", item.CommentsCount),
	)
	events.PublishAll(ctx, u.publisher, u.logger, events.ReviewRecordedEvent{
		CommentID:     comment.ID,
		ItemID:        item.ID,
		BuyerID:       comment.BuyerID,
		Rating:        comment.Rating,
		AvgRating:     item.AvgRating,
		CommentsCount: item.CommentsCount,
		OccurredAt:    now,
	})
	return comment, nil
}
