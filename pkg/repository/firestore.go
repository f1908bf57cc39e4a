package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// firestoreRepo implements Repository using Cloud Firestore. Messages live
// under users/{userID}/messages, ordered by the server-assigned createdAt.
type firestoreRepo struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}
	return &firestoreRepo{client: client}, nil
}

func (r *firestoreRepo) messages(userID model.UserID) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(string(userID)).Collection("messages")
}

func (r *firestoreRepo) Append(ctx context.Context, userID model.UserID, text string, role model.Role) (*model.Message, error) {
	if userID == "" {
		logging.From(ctx).Error("append without resolved user, dropping message", "role", role)
		return nil, nil
	}

	msg := &model.Message{
		ID:   model.NewMessageID(),
		Text: text,
		Role: role,
	}

	if _, err := r.messages(userID).Doc(string(msg.ID)).Set(ctx, msg); err != nil {
		return nil, goerr.Wrap(err, "failed to append message",
			goerr.V("user_id", userID), goerr.V("role", role))
	}

	return msg, nil
}

func (r *firestoreRepo) Watch(ctx context.Context, userID model.UserID) (*Subscription, error) {
	if userID == "" {
		return nil, goerr.New("cannot watch messages without resolved user")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	updates := make(chan model.Transcript)
	sub := newSubscription(updates, cancel)

	iter := r.messages(userID).OrderBy("createdAt", firestore.Asc).Snapshots(watchCtx)

	go func() {
		defer close(updates)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err != nil {
				if watchCtx.Err() == nil {
					sub.setErr(goerr.Wrap(err, "message subscription failed",
						goerr.V("user_id", userID)))
				}
				return
			}

			transcript := make(model.Transcript, 0, snap.Size)
			for {
				doc, err := snap.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					sub.setErr(goerr.Wrap(err, "failed to read snapshot documents",
						goerr.V("user_id", userID)))
					return
				}
				var msg model.Message
				if err := doc.DataTo(&msg); err != nil {
					logging.From(watchCtx).Warn("skipping malformed message document",
						"doc", doc.Ref.ID, "error", err)
					continue
				}
				transcript = append(transcript, &msg)
			}

			select {
			case updates <- transcript:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (r *firestoreRepo) Close() error {
	if err := r.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
