package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"weibo-insight-go/internal/analysis"
	"weibo-insight-go/internal/config"
	"weibo-insight-go/internal/weibo"
)

var (
	mongoOnce sync.Once
	mongoInst *mongo.Client
	mongoErr  error
)

func mongoDBName() string {
	name := strings.TrimSpace(config.AppConfig.MongoDB)
	if name == "" {
		name = "weibo_insight"
	}
	return name
}

func mongoClient() (*mongo.Client, error) {
	if backendKind() != backendMongoDB {
		return nil, errors.New("mongodb backend disabled")
	}
	mongoOnce.Do(func() {
		uri := strings.TrimSpace(config.AppConfig.MongoURI)
		if uri == "" {
			mongoErr = errors.New("MONGO_URI is empty")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			mongoErr = err
			return
		}
		if err := cli.Ping(ctx, readpref.Primary()); err != nil {
			_ = cli.Disconnect(context.Background())
			mongoErr = err
			return
		}
		if err := initMongoSchema(ctx, cli); err != nil {
			_ = cli.Disconnect(context.Background())
			mongoErr = err
			return
		}
		mongoInst = cli
	})
	return mongoInst, mongoErr
}

func initMongoSchema(ctx context.Context, cli *mongo.Client) error {
	db := cli.Database(mongoDBName())

	_, err := db.Collection("blog").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "weibo_id", Value: 1}},
		Options: options.Index().SetName("idx_blog_weibo").SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = db.Collection("comment_task").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tag_comment_task_id", Value: 1}},
		Options: options.Index().SetName("idx_task_id").SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = db.Collection("comment_reposts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tag_comment_task_id", Value: 1}},
			Options: options.Index().SetName("idx_reposts_task"),
		},
		{
			Keys:    bson.D{{Key: "tag_comment_task_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_reposts_task_time"),
		},
	})
	if err != nil {
		return err
	}
	for _, kind := range analysisDocKinds {
		_, err := db.Collection(string(kind)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "tag_comment_task_id", Value: 1}},
			Options: options.Index().SetName("idx_" + string(kind)).SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func mongoColl(name string) (*mongo.Collection, error) {
	cli, err := mongoClient()
	if err != nil {
		return nil, err
	}
	return cli.Database(mongoDBName()).Collection(name), nil
}

func mongoSaveBlogPosts(posts []weibo.Post) error {
	coll, err := mongoColl("blog")
	if err != nil {
		return err
	}
	models := make([]mongo.WriteModel, 0, len(posts))
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		m := mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "weibo_id", Value: p.ID}}).
			SetUpdate(bson.D{{Key: "$set", Value: p}}).
			SetUpsert(true)
		models = append(models, m)
	}
	if len(models) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err = coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func mongoInsertReposts(records []weibo.RepostRecord) error {
	coll, err := mongoColl("comment_reposts")
	if err != nil {
		return err
	}
	docs := make([]any, 0, len(records))
	for _, r := range records {
		docs = append(docs, r)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err = coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

func mongoFindReposts(taskID string) ([]weibo.RepostRecord, error) {
	coll, err := mongoColl("comment_reposts")
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cur, err := coll.Find(ctx,
		bson.D{{Key: "tag_comment_task_id", Value: taskID}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []weibo.RepostRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mongoUpsertTask(doc TaskDoc) error {
	coll, err := mongoColl("comment_task")
	if err != nil {
		return err
	}
	if doc.TaskID == "" {
		return errors.New("task id is empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = coll.UpdateOne(ctx,
		bson.D{{Key: "tag_comment_task_id", Value: doc.TaskID}},
		bson.D{{Key: "$set", Value: doc}},
		options.Update().SetUpsert(true))
	return err
}

func mongoGetTask(taskID string) (TaskDoc, bool, error) {
	coll, err := mongoColl("comment_task")
	if err != nil {
		return TaskDoc{}, false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc TaskDoc
	err = coll.FindOne(ctx, bson.D{{Key: "tag_comment_task_id", Value: taskID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return TaskDoc{}, false, nil
	}
	if err != nil {
		return TaskDoc{}, false, err
	}
	return doc, true, nil
}

func mongoListTasks() ([]TaskDoc, error) {
	coll, err := mongoColl("comment_task")
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cur, err := coll.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []TaskDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mongoSaveDoc(kind docKind, taskID string, data []byte) error {
	coll, err := mongoColl(string(kind))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = coll.UpdateOne(ctx,
		bson.D{{Key: "tag_comment_task_id", Value: taskID}},
		bson.D{{Key: "$set", Value: bson.M{
			"tag_comment_task_id": taskID,
			"data_json":           string(data),
			"updated_at":          time.Now().Unix(),
		}}},
		options.Update().SetUpsert(true))
	return err
}

func mongoLoadDoc(kind docKind, taskID string) ([]byte, bool, error) {
	coll, err := mongoColl(string(kind))
	if err != nil {
		return nil, false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doc struct {
		DataJSON string `bson:"data_json"`
	}
	err = coll.FindOne(ctx, bson.D{{Key: "tag_comment_task_id", Value: taskID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(doc.DataJSON), true, nil
}

// mongoTendency buckets a task's reposts per day on the server. The day key
// is the first 10 bytes of the normalized created_at string; records whose
// time stayed unknown produce an empty key and are filtered out.
func mongoTendency(taskID string) ([]analysis.TrendPoint, error) {
	coll, err := mongoColl("comment_reposts")
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: bson.M{
			"day":                 bson.M{"$substr": bson.A{"$created_at", 0, 10}},
			"tag_comment_task_id": 1,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"day":  "$day",
				"task": "$tag_comment_task_id",
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id.day": 1}}},
		{{Key: "$match", Value: bson.M{
			"_id.task": taskID,
			"_id.day":  bson.M{"$ne": ""},
		}}},
	}
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID struct {
			Day string `bson:"day"`
		} `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]analysis.TrendPoint, 0, len(rows))
	for _, row := range rows {
		if len(row.ID.Day) < 10 {
			continue
		}
		out = append(out, analysis.TrendPoint{Key: row.ID.Day, DocCount: row.Count})
	}
	return out, nil
}
