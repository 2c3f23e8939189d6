// Package mongodb implements the durable chat store ports on MongoDB.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/lumachat/chatrelay/internal/chat"
)

type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Username  string        `bson:"username"`
	Name      string        `bson:"name"`
	AvatarURL string        `bson:"avatarUrl,omitempty"`
	IsOnline  bool          `bson:"isOnline"`
	LastSeen  time.Time     `bson:"lastSeen"`
}

type participantDoc struct {
	UserID      bson.ObjectID `bson:"userId"`
	UnreadCount int           `bson:"unreadCount"`
	JoinedAt    time.Time     `bson:"joinedAt"`
}

type chatDoc struct {
	ID           bson.ObjectID    `bson:"_id,omitempty"`
	Name         string           `bson:"name,omitempty"`
	IsGroup      bool             `bson:"isGroup"`
	AvatarURL    string           `bson:"avatarUrl,omitempty"`
	Participants []participantDoc `bson:"participants"`
	CreatedAt    time.Time        `bson:"createdAt"`
}

type messageDoc struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	ChatID     bson.ObjectID `bson:"chatId"`
	SenderID   bson.ObjectID `bson:"senderId"`
	SenderName string        `bson:"senderName"`
	Content    string        `bson:"content"`
	Type       string        `bson:"type"`
	FileURL    string        `bson:"fileUrl,omitempty"`
	IsEdited   bool          `bson:"isEdited"`
	EditedAt   *time.Time    `bson:"editedAt,omitempty"`
	CreatedAt  time.Time     `bson:"createdAt"`
}

// Stores bundles the three store implementations over one database.
type Stores struct {
	Users    *UserStore
	Chats    *ChatStore
	Messages *MessageStore
}

func NewStores(logger *zap.Logger, client *mongo.Client) *Stores {
	database := client.Database("chatrelay")

	users := database.Collection("users")
	chats := database.Collection("chats")
	messages := database.Collection("messages")

	return &Stores{
		Users:    &UserStore{users: users},
		Chats:    &ChatStore{chats: chats},
		Messages: &MessageStore{logger: logger, users: users, chats: chats, messages: messages},
	}
}

func (s *Stores) Setup(ctx context.Context) error {
	usernameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.Users.users.Indexes().CreateOne(ctx, usernameIndex); err != nil {
		return err
	}

	participantIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "participants.userId", Value: 1}},
	}
	if _, err := s.Chats.chats.Indexes().CreateOne(ctx, participantIndex); err != nil {
		return err
	}

	chatHistoryIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "chatId", Value: 1},
			{Key: "_id", Value: -1},
		},
	}
	_, err := s.Messages.messages.Indexes().CreateOne(ctx, chatHistoryIndex)

	return err
}

type UserStore struct {
	users *mongo.Collection
}

var _ chat.UserStore = (*UserStore)(nil)

func (s *UserStore) Get(ctx context.Context, userID string) (chat.User, error) {
	objectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return chat.User{}, err
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		return chat.User{}, err
	}

	return chat.User{
		ID:        doc.ID.Hex(),
		Username:  doc.Username,
		Name:      doc.Name,
		AvatarURL: doc.AvatarURL,
		IsOnline:  doc.IsOnline,
		LastSeen:  doc.LastSeen,
	}, nil
}

func (s *UserStore) SetOnline(ctx context.Context, userID string, online bool) error {
	objectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	update := bson.M{"isOnline": online}
	if !online {
		update["lastSeen"] = time.Now()
	}

	_, err = s.users.UpdateByID(ctx, objectID, bson.M{"$set": update})

	return err
}

type ChatStore struct {
	chats *mongo.Collection
}

var _ chat.ChatStore = (*ChatStore)(nil)

func (s *ChatStore) MemberIDs(ctx context.Context, chatID string) ([]string, error) {
	objectID, err := bson.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, err
	}

	var doc chatDoc
	err = s.chats.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(doc.Participants))
	for i, participant := range doc.Participants {
		ids[i] = participant.UserID.Hex()
	}

	return ids, nil
}

func (s *ChatStore) IsMember(ctx context.Context, chatID string, userID string) (bool, error) {
	chatObjectID, err := bson.ObjectIDFromHex(chatID)
	if err != nil {
		return false, nil
	}
	userObjectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}

	count, err := s.chats.CountDocuments(ctx, bson.M{
		"_id":                 chatObjectID,
		"participants.userId": userObjectID,
	})
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

type MessageStore struct {
	logger   *zap.Logger
	users    *mongo.Collection
	chats    *mongo.Collection
	messages *mongo.Collection
}

var _ chat.MessageStore = (*MessageStore)(nil)

func (s *MessageStore) Create(ctx context.Context, req chat.CreateMessage) (chat.Message, error) {
	chatObjectID, err := bson.ObjectIDFromHex(req.ChatID)
	if err != nil {
		return chat.Message{}, err
	}
	senderObjectID, err := bson.ObjectIDFromHex(req.SenderID)
	if err != nil {
		return chat.Message{}, err
	}

	var sender userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": senderObjectID}).Decode(&sender)
	if err != nil {
		return chat.Message{}, err
	}

	createdAt := time.Now()
	doc := messageDoc{
		ChatID:     chatObjectID,
		SenderID:   senderObjectID,
		SenderName: sender.Name,
		Content:    req.Content,
		Type:       req.Type,
		CreatedAt:  createdAt,
	}

	result, err := s.messages.InsertOne(ctx, doc)
	if err != nil {
		return chat.Message{}, err
	}

	// Unread bookkeeping for every participant except the sender. The
	// message is already committed at this point, so a failed counter
	// update must not surface as a failed send; the counters drift until
	// the next mark-read instead.
	_, err = s.chats.UpdateByID(ctx, chatObjectID,
		bson.M{"$inc": bson.M{"participants.$[other].unreadCount": 1}},
		options.UpdateOne().SetArrayFilters([]any{
			bson.M{"other.userId": bson.M{"$ne": senderObjectID}},
		}),
	)
	if err != nil {
		s.logger.Warn("failed to update unread counters",
			zap.String("chatId", req.ChatID),
			zap.Error(err))
	}

	return chat.Message{
		ID:         result.InsertedID.(bson.ObjectID).Hex(),
		ChatID:     req.ChatID,
		SenderID:   req.SenderID,
		SenderName: sender.Name,
		Content:    req.Content,
		Type:       req.Type,
		CreatedAt:  createdAt,
	}, nil
}

func (s *MessageStore) Get(ctx context.Context, messageID string) (chat.Message, error) {
	objectID, err := bson.ObjectIDFromHex(messageID)
	if err != nil {
		return chat.Message{}, err
	}

	var doc messageDoc
	err = s.messages.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		return chat.Message{}, err
	}

	return messageFromDoc(doc), nil
}

func (s *MessageStore) Edit(ctx context.Context, messageID string, content string) (chat.Message, error) {
	objectID, err := bson.ObjectIDFromHex(messageID)
	if err != nil {
		return chat.Message{}, err
	}

	editedAt := time.Now()
	update := bson.M{"$set": bson.M{
		"content":  content,
		"isEdited": true,
		"editedAt": editedAt,
	}}

	var doc messageDoc
	err = s.messages.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return chat.Message{}, err
	}

	return messageFromDoc(doc), nil
}

func (s *MessageStore) Delete(ctx context.Context, messageID string) error {
	objectID, err := bson.ObjectIDFromHex(messageID)
	if err != nil {
		return err
	}

	result, err := s.messages.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (s *MessageStore) MarkRead(ctx context.Context, chatID string, userID string) error {
	chatObjectID, err := bson.ObjectIDFromHex(chatID)
	if err != nil {
		return err
	}
	userObjectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	_, err = s.chats.UpdateByID(ctx, chatObjectID,
		bson.M{"$set": bson.M{"participants.$[reader].unreadCount": 0}},
		options.UpdateOne().SetArrayFilters([]any{
			bson.M{"reader.userId": userObjectID},
		}),
	)

	return err
}

func messageFromDoc(doc messageDoc) chat.Message {
	return chat.Message{
		ID:         doc.ID.Hex(),
		ChatID:     doc.ChatID.Hex(),
		SenderID:   doc.SenderID.Hex(),
		SenderName: doc.SenderName,
		Content:    doc.Content,
		Type:       doc.Type,
		FileURL:    doc.FileURL,
		IsEdited:   doc.IsEdited,
		EditedAt:   doc.EditedAt,
		CreatedAt:  doc.CreatedAt,
	}
}
