package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// Collection names.
const (
	colUsers     = "users"
	colPending   = "pending_users"
	colSurveys   = "surveys"
	colCounters  = "counters"
	colRatings   = "ratings"
	colFeedback  = "feedback"
	colResponses = "user_responses"
)

// MongoStore implements Store on MongoDB. Grouped writes run in
// transactions, so the server must be a replica set (Atlas or a single-node
// rs is enough).
type MongoStore struct {
	client *mongo.Client

	users     *mongo.Collection
	pending   *mongo.Collection
	surveys   *mongo.Collection
	counters  *mongo.Collection
	ratings   *mongo.Collection
	feedback  *mongo.Collection
	responses *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore binds the collections of dbName and creates the indexes.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*MongoStore, error) {
	db := client.Database(dbName)
	s := &MongoStore{
		client:    client,
		users:     db.Collection(colUsers),
		pending:   db.Collection(colPending),
		surveys:   db.Collection(colSurveys),
		counters:  db.Collection(colCounters),
		ratings:   db.Collection(colRatings),
		feedback:  db.Collection(colFeedback),
		responses: db.Collection(colResponses),
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the indexes the store relies on. The partial unique
// index on surveys.active is what enforces a single active survey.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.surveys.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "active", Value: 1}},
			Options: options.Index().
				SetName("single_active").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{Keys: bson.D{{Key: "startedAt", Value: 1}}},
	}); err != nil {
		return mwrap("create survey indexes", err)
	}
	if _, err := s.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "surveyId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return mwrap("create tracker index", err)
	}
	for _, c := range []*mongo.Collection{s.ratings, s.feedback} {
		if _, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "createdAt", Value: 1}},
		}); err != nil {
			return mwrap("create "+c.Name()+" index", err)
		}
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mwrap(op string, err error) error {
	return models.Persistence("mongo: "+op, err)
}

func (s *MongoStore) withTx(ctx context.Context, op string, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return mwrap(op, err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return mwrap(op, err)
}

// nextID returns the next value of the named counter.
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	return c.Seq, err
}

func (s *MongoStore) RequestAccess(ctx context.Context, u models.User) (models.AccessStatus, error) {
	var status models.AccessStatus
	err := s.withTx(ctx, "request access", func(sc mongo.SessionContext) error {
		n, err := s.users.CountDocuments(sc, bson.M{"_id": u.UserID})
		if err != nil {
			return err
		}
		if n > 0 {
			status = models.AccessAlreadyApproved
			return nil
		}

		res, err := s.pending.UpdateOne(sc,
			bson.M{"_id": u.UserID},
			bson.M{"$set": bson.M{
				"username":  u.Username,
				"firstName": u.FirstName,
				"lastName":  u.LastName,
				"since":     u.Since.UTC(),
			}},
			options.Update().SetUpsert(true))
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			status = models.AccessAlreadyPending
		} else {
			status = models.AccessQueued
		}
		return nil
	})
	return status, err
}

func (s *MongoStore) listUsers(ctx context.Context, op string, c *mongo.Collection, sort bson.D) ([]models.User, error) {
	cursor, err := c.Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, mwrap(op, err)
	}
	defer cursor.Close(ctx)

	out := []models.User{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, mwrap(op, err)
	}
	return out, nil
}

func (s *MongoStore) ListPending(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "list pending", s.pending, bson.D{{Key: "since", Value: 1}, {Key: "_id", Value: 1}})
}

func (s *MongoStore) ListApproved(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "list approved", s.users, bson.D{{Key: "_id", Value: 1}})
}

func (s *MongoStore) has(ctx context.Context, op string, c *mongo.Collection, filter bson.M) (bool, error) {
	n, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, mwrap(op, err)
	}
	return n > 0, nil
}

func (s *MongoStore) IsPending(ctx context.Context, userID int64) (bool, error) {
	return s.has(ctx, "is pending", s.pending, bson.M{"_id": userID})
}

func (s *MongoStore) IsApproved(ctx context.Context, userID int64) (bool, error) {
	return s.has(ctx, "is approved", s.users, bson.M{"_id": userID})
}

func (s *MongoStore) ApprovePending(ctx context.Context, userID int64, at time.Time) (models.User, error) {
	var u models.User
	err := s.withTx(ctx, "approve", func(sc mongo.SessionContext) error {
		err := s.pending.FindOneAndDelete(sc, bson.M{"_id": userID}).Decode(&u)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		u.Since = at.UTC()
		_, err = s.users.ReplaceOne(sc, bson.M{"_id": userID}, u, options.Replace().SetUpsert(true))
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *MongoStore) deleted(ctx context.Context, op string, c *mongo.Collection, id int64) (bool, error) {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, mwrap(op, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) DeletePending(ctx context.Context, userID int64) (bool, error) {
	return s.deleted(ctx, "delete pending", s.pending, userID)
}

func (s *MongoStore) DeleteApproved(ctx context.Context, userID int64) (bool, error) {
	return s.deleted(ctx, "delete approved", s.users, userID)
}

func (s *MongoStore) CreateSurvey(ctx context.Context, startedAt, deadlineAt time.Time) (models.Survey, []int64, error) {
	var (
		sv       models.Survey
		enrolled []int64
	)
	err := s.withTx(ctx, "create survey", func(sc mongo.SessionContext) error {
		sv = models.Survey{StartedAt: startedAt.UTC(), DeadlineAt: deadlineAt.UTC(), Active: true}
		enrolled = nil

		n, err := s.surveys.CountDocuments(sc, bson.M{"active": true})
		if err != nil {
			return err
		}
		if n > 0 {
			return models.ErrAlreadyActive
		}
		if sv.ID, err = s.nextID(sc, colSurveys); err != nil {
			return err
		}
		if _, err := s.surveys.InsertOne(sc, sv); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return models.ErrAlreadyActive
			}
			return err
		}

		cursor, err := s.users.Find(sc, bson.M{},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		var ids []struct {
			ID int64 `bson:"_id"`
		}
		if err := cursor.All(sc, &ids); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		docs := make([]interface{}, 0, len(ids))
		for _, row := range ids {
			enrolled = append(enrolled, row.ID)
			docs = append(docs, models.ResponseTracker{SurveyID: sv.ID, UserID: row.ID})
		}
		_, err = s.responses.InsertMany(sc, docs)
		return err
	})
	if err != nil {
		return models.Survey{}, nil, err
	}
	return sv, enrolled, nil
}

func (s *MongoStore) findSurvey(ctx context.Context, filter bson.M) (models.Survey, error) {
	var sv models.Survey
	err := s.surveys.FindOne(ctx, filter).Decode(&sv)
	return sv, err
}

func (s *MongoStore) ActiveSurvey(ctx context.Context) (models.Survey, error) {
	sv, err := s.findSurvey(ctx, bson.M{"active": true})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Survey{}, models.ErrNoActiveSurvey
	}
	return sv, mwrap("active survey", err)
}

func (s *MongoStore) GetSurvey(ctx context.Context, id int64) (models.Survey, error) {
	sv, err := s.findSurvey(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Survey{}, models.ErrNotFound
	}
	return sv, mwrap("get survey", err)
}

func (s *MongoStore) CloseSurvey(ctx context.Context, id int64) (bool, error) {
	res, err := s.surveys.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return false, mwrap("close survey", err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}
	found, err := s.has(ctx, "close survey", s.surveys, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	if !found {
		return false, models.ErrNotFound
	}
	return false, nil
}

func trackerKey(surveyID, userID int64) bson.M {
	return bson.M{"surveyId": surveyID, "userId": userID}
}

func (s *MongoStore) EnsureTracker(ctx context.Context, surveyID, userID int64) (bool, error) {
	res, err := s.responses.UpdateOne(ctx,
		trackerKey(surveyID, userID),
		bson.M{"$setOnInsert": bson.M{"hasResponded": false, "reminded": false}},
		options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race, the row exists
		return false, nil
	}
	if err != nil {
		return false, mwrap("ensure tracker", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) GetTracker(ctx context.Context, surveyID, userID int64) (models.ResponseTracker, error) {
	var t models.ResponseTracker
	err := s.responses.FindOne(ctx, trackerKey(surveyID, userID)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ResponseTracker{SurveyID: surveyID, UserID: userID}, models.ErrNotFound
	}
	return t, mwrap("get tracker", err)
}

func (s *MongoStore) ListReminderTargets(ctx context.Context, surveyID int64) ([]int64, error) {
	cursor, err := s.responses.Find(ctx,
		bson.M{"surveyId": surveyID, "hasResponded": false, "reminded": false},
		options.Find().SetSort(bson.D{{Key: "userId", Value: 1}}))
	if err != nil {
		return nil, mwrap("reminder targets", err)
	}
	var rows []models.ResponseTracker
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mwrap("reminder targets", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	// Removed members keep their tracker but are no longer reminded.
	approved, err := s.users.Distinct(ctx, "_id", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mwrap("reminder targets", err)
	}
	keep := make(map[int64]bool, len(approved))
	for _, v := range approved {
		if id, ok := v.(int64); ok {
			keep[id] = true
		}
	}
	out := ids[:0]
	for _, id := range ids {
		if keep[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *MongoStore) MarkReminded(ctx context.Context, surveyID, userID int64) (bool, error) {
	filter := trackerKey(surveyID, userID)
	filter["reminded"] = false
	res, err := s.responses.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"reminded": true}})
	if err != nil {
		return false, mwrap("mark reminded", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SaveResponse(ctx context.Context, userID int64, r models.Rating, fb *models.Feedback) error {
	if err := checkRating(r); err != nil {
		return err
	}
	return s.withTx(ctx, "save response", func(sc mongo.SessionContext) error {
		sv, err := s.findSurvey(sc, bson.M{"_id": r.SurveyID})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !sv.Active {
			return models.ErrNoActiveSurvey
		}

		filter := trackerKey(r.SurveyID, userID)
		filter["hasResponded"] = false
		_, err = s.responses.UpdateOne(sc, filter,
			bson.M{
				"$set":         bson.M{"hasResponded": true},
				"$setOnInsert": bson.M{"reminded": false},
			},
			options.Update().SetUpsert(true))
		if mongo.IsDuplicateKeyError(err) {
			// the (survey, user) row exists with hasResponded=true
			return models.ErrAlreadyResponded
		}
		if err != nil {
			return err
		}

		r.CreatedAt = r.CreatedAt.UTC()
		if _, err := s.ratings.InsertOne(sc, r); err != nil {
			return err
		}
		if fb == nil {
			return nil
		}
		doc := *fb
		doc.CreatedAt = doc.CreatedAt.UTC()
		_, err = s.feedback.InsertOne(sc, doc)
		return err
	})
}

// attendedRatings filters the $lookup'ed ratings array down to attended ones.
var attendedRatings = bson.M{"$filter": bson.M{"input": "$ratings", "as": "r", "cond": "$$r.attended"}}

func avgOfAttended(field string) bson.M {
	return bson.M{"$avg": bson.M{"$map": bson.M{"input": attendedRatings, "as": "r", "in": "$$r." + field}}}
}

type aggRow struct {
	ID                 int64     `bson:"_id"`
	StartedAt          time.Time `bson:"startedAt"`
	AvgInterest        *float64  `bson:"avgInterest"`
	AvgRelevance       *float64  `bson:"avgRelevance"`
	AvgSpiritualGrowth *float64  `bson:"avgSpiritualGrowth"`
	Attended           int       `bson:"attended"`
	NotAttended        int       `bson:"notAttended"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (s *MongoStore) SurveyStats(ctx context.Context, surveyID int64) (models.SurveyStats, error) {
	st := models.SurveyStats{SurveyID: surveyID, Feedbacks: []models.FeedbackItem{}}
	if _, err := s.GetSurvey(ctx, surveyID); err != nil {
		return st, err
	}

	ifAttended := func(field string) bson.M {
		return bson.M{"$cond": bson.A{"$attended", "$" + field, nil}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"surveyId": surveyID}}},
		{{Key: "$group", Value: bson.M{
			"_id":                nil,
			"avgInterest":        bson.M{"$avg": ifAttended("interest")},
			"avgRelevance":       bson.M{"$avg": ifAttended("relevance")},
			"avgSpiritualGrowth": bson.M{"$avg": ifAttended("spiritualGrowth")},
			"attended":           bson.M{"$sum": bson.M{"$cond": bson.A{"$attended", 1, 0}}},
			"notAttended":        bson.M{"$sum": bson.M{"$cond": bson.A{"$attended", 0, 1}}},
		}}},
	}
	cursor, err := s.ratings.Aggregate(ctx, pipeline)
	if err != nil {
		return st, mwrap("survey stats", err)
	}
	var rows []struct {
		AvgInterest        *float64 `bson:"avgInterest"`
		AvgRelevance       *float64 `bson:"avgRelevance"`
		AvgSpiritualGrowth *float64 `bson:"avgSpiritualGrowth"`
		Attended           int      `bson:"attended"`
		NotAttended        int      `bson:"notAttended"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return st, mwrap("survey stats", err)
	}
	if len(rows) > 0 {
		st.AvgInterest = deref(rows[0].AvgInterest)
		st.AvgRelevance = deref(rows[0].AvgRelevance)
		st.AvgSpiritualGrowth = deref(rows[0].AvgSpiritualGrowth)
		st.TotalAttended = rows[0].Attended
		st.NotAttended = rows[0].NotAttended
	}

	fbs, err := s.ListFeedback(ctx, surveyID)
	if err != nil {
		return st, err
	}
	for _, fb := range fbs {
		st.Feedbacks = append(st.Feedbacks, models.FeedbackItem{Text: fb.Text, CreatedAt: fb.CreatedAt})
	}
	return st, nil
}

func (s *MongoStore) PeriodStats(ctx context.Context, since time.Time) ([]models.PeriodStat, error) {
	match := bson.M{"active": false}
	if !since.IsZero() {
		match["startedAt"] = bson.M{"$gte": since.UTC()}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "startedAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         colRatings,
			"localField":   "_id",
			"foreignField": "surveyId",
			"as":           "ratings",
		}}},
		{{Key: "$project", Value: bson.M{
			"startedAt":          1,
			"avgInterest":        avgOfAttended("interest"),
			"avgRelevance":       avgOfAttended("relevance"),
			"avgSpiritualGrowth": avgOfAttended("spiritualGrowth"),
			"attended":           bson.M{"$size": attendedRatings},
			"notAttended": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": "$ratings", "as": "r", "cond": bson.M{"$not": bson.A{"$$r.attended"}},
			}}},
		}}},
	}
	cursor, err := s.surveys.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mwrap("period stats", err)
	}
	var rows []aggRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mwrap("period stats", err)
	}

	out := make([]models.PeriodStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PeriodStat{
			SurveyID:           r.ID,
			StartedAt:          r.StartedAt,
			AvgInterest:        deref(r.AvgInterest),
			AvgRelevance:       deref(r.AvgRelevance),
			AvgSpiritualGrowth: deref(r.AvgSpiritualGrowth),
			AttendedCount:      r.Attended,
			NotAttendedCount:   r.NotAttended,
		})
	}
	return out, nil
}

func (s *MongoStore) ListRatings(ctx context.Context, surveyID int64) ([]models.Rating, error) {
	cursor, err := s.ratings.Find(ctx, bson.M{"surveyId": surveyID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mwrap("list ratings", err)
	}
	var out []models.Rating
	if err := cursor.All(ctx, &out); err != nil {
		return nil, mwrap("list ratings", err)
	}
	return out, nil
}

func (s *MongoStore) ListFeedback(ctx context.Context, surveyID int64) ([]models.Feedback, error) {
	cursor, err := s.feedback.Find(ctx, bson.M{"surveyId": surveyID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mwrap("list feedback", err)
	}
	var out []models.Feedback
	if err := cursor.All(ctx, &out); err != nil {
		return nil, mwrap("list feedback", err)
	}
	return out, nil
}
