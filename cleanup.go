package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// 位置情報履歴の保持期間
const locationRetentionPeriod = 45 * 24 * time.Hour

// 1ユーザー・1実行あたりの削除上限。Firestoreのバッチ書き込み上限と同じ500件。
// 500件を超える分は翌日の実行で削除される。
const locationCleanupPageSize = 500

// 位置情報履歴のサブコレクション名
const locationHistoryCollectionName = "locationHistory"

// CleanupResult は定期クリーンアップ1回分の集計結果です
type CleanupResult struct {
	UsersScanned   int
	EntriesDeleted int
	FailedUsers    int
}

// locationStore はクリーンアップが必要とする最小のストア操作です。テストでの差し替え用。
type locationStore interface {
	// NextUser は次のユーザーIDを返します。走査終了は iterator.Done で通知します。
	NextUser() (string, error)
	// PurgeStaleEntries は1ユーザー分の期限切れエントリを1ページだけ削除し、削除件数を返します
	PurgeStaleEntries(ctx context.Context, uid string, cutoff time.Time) (int, error)
}

// firestoreLocationStore はFirestoreベースのlocationStore実装です
type firestoreLocationStore struct {
	users *firestore.DocumentIterator
}

func (s *firestoreLocationStore) NextUser() (string, error) {
	doc, err := s.users.Next()
	if err != nil {
		return "", err
	}
	return doc.Ref.ID, nil
}

// PurgeStaleEntries はページが空の場合は何も書き込みません
func (s *firestoreLocationStore) PurgeStaleEntries(ctx context.Context, uid string, cutoff time.Time) (int, error) {
	userRef := firestoreClient.Collection(usersCollectionName).Doc(uid)
	query := userRef.Collection(locationHistoryCollectionName).
		Where("timestamp", "<", cutoff).
		Limit(locationCleanupPageSize)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}

	if len(docs) == 0 {
		return 0, nil
	}

	// 1ページ分をアトミックな1バッチで削除する
	batch := firestoreClient.Batch()
	for _, doc := range docs {
		batch.Delete(doc.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, err
	}

	log.Printf("INFO: Deleted %d stale location entries for user %s", len(docs), uid)
	return len(docs), nil
}

// retentionCutoff は保持期間の境界時刻を返します。これより古いエントリが削除対象です。
func retentionCutoff(now time.Time) time.Time {
	return now.Add(-locationRetentionPeriod)
}

// CleanupLocationHistory は全ユーザーの位置情報履歴から保持期間を過ぎたエントリを削除します
func CleanupLocationHistory(ctx context.Context, now time.Time) (*CleanupResult, error) {
	if firestoreClient == nil {
		return nil, fmt.Errorf("firestore client is not initialized")
	}

	iter := firestoreClient.Collection(usersCollectionName).Documents(ctx)
	defer iter.Stop()

	return runLocationCleanup(ctx, &firestoreLocationStore{users: iter}, now)
}

// runLocationCleanup はクリーンアップの本体です
// ユーザー単位の失敗は集計に記録して次のユーザーへ進み、全ユーザーが失敗した場合のみエラーを返します
func runLocationCleanup(ctx context.Context, store locationStore, now time.Time) (*CleanupResult, error) {
	cutoff := retentionCutoff(now)
	log.Printf("INFO: Starting location history cleanup (cutoff: %s)", cutoff.Format(time.RFC3339))

	result := &CleanupResult{}

	for {
		uid, err := store.NextUser()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("ERROR: Failed to iterate over users: %v", err)
			return result, err
		}

		result.UsersScanned++

		deleted, err := store.PurgeStaleEntries(ctx, uid, cutoff)
		if err != nil {
			// 1ユーザーの失敗で実行全体を止めない
			log.Printf("ERROR: Failed to cleanup location history for user %s: %v", uid, err)
			result.FailedUsers++
			continue
		}
		result.EntriesDeleted += deleted
	}

	log.Printf("INFO: Location history cleanup completed: %d users scanned, %d entries deleted, %d users failed",
		result.UsersScanned, result.EntriesDeleted, result.FailedUsers)

	if result.UsersScanned > 0 && result.FailedUsers == result.UsersScanned {
		return result, fmt.Errorf("cleanup failed for all %d users", result.FailedUsers)
	}
	return result, nil
}
