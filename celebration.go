package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// 日付フィールドの形式
const celebrationDateLayout = "2006-01-02"

// お祝いイベントの種別
const (
	celebrationBirthday            = "birthday"
	celebrationWorkAnniversary     = "work_anniversary"
	celebrationMarriageAnniversary = "marriage_anniversary"
)

// CelebrationEvent は1件のお祝い通知です
type CelebrationEvent struct {
	Type    string
	Content notificationContent
}

// CelebrationResult はお祝いスキャン1回分の集計結果です
type CelebrationResult struct {
	UsersScanned int
	EventsSent   int
	FailedUsers  int
}

// employeeLister は従業員ドキュメントを1件ずつ返す最小インターフェースです。テストでの差し替え用。
// 走査終了は iterator.Done で通知します。
type employeeLister interface {
	NextEmployee() (string, EmployeeRecord, error)
}

// errBadEmployeeDoc は従業員ドキュメントをEmployeeRecordに変換できなかったことを表します
// 走査は中断せず、該当ユーザーのみ失敗として数えます
var errBadEmployeeDoc = errors.New("bad employee document")

// firestoreEmployeeLister はFirestoreベースのemployeeLister実装です
type firestoreEmployeeLister struct {
	users *firestore.DocumentIterator
}

func (l *firestoreEmployeeLister) NextEmployee() (string, EmployeeRecord, error) {
	doc, err := l.users.Next()
	if err != nil {
		return "", EmployeeRecord{}, err
	}

	var emp EmployeeRecord
	if err := doc.DataTo(&emp); err != nil {
		return doc.Ref.ID, EmployeeRecord{}, fmt.Errorf("%w: %v", errBadEmployeeDoc, err)
	}
	return doc.Ref.ID, emp, nil
}

// parseCelebrationDate は "YYYY-MM-DD" 形式の日付文字列を解析します
func parseCelebrationDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(celebrationDateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sameDayAndMonth は年を無視して日と月の一致を判定します
func sameDayAndMonth(date, today time.Time) bool {
	return date.Day() == today.Day() && date.Month() == today.Month()
}

// yearsSince は経過した年数を返します。日と月が一致している前提で暦年の差がそのまま満年数になります。
func yearsSince(date, today time.Time) int {
	return today.Year() - date.Year()
}

// pluralizeYears は年数を "1 year" / "N years" の形式にします
func pluralizeYears(n int) string {
	if n == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", n)
}

// detectCelebrations は従業員1人分のお祝いイベントを判定します
// 3条件は独立に評価され、同じ日に0〜3件のイベントになりえます
// 日付フィールドが未設定または不正な場合、その条件は黙ってスキップします
func detectCelebrations(emp EmployeeRecord, today time.Time) []CelebrationEvent {
	if emp.Name == "" {
		return nil
	}

	var events []CelebrationEvent

	if dob, ok := parseCelebrationDate(emp.DOB); ok && sameDayAndMonth(dob, today) {
		events = append(events, CelebrationEvent{
			Type: celebrationBirthday,
			Content: notificationContent{
				Title: "🎂 Happy Birthday!",
				Body:  fmt.Sprintf("🎉 Wishing %s a very Happy Birthday!", emp.Name),
			},
		})
	}

	if joined, ok := parseCelebrationDate(emp.JoiningDate); ok && sameDayAndMonth(joined, today) {
		// 入社当日（経過0年）は対象外
		if years := yearsSince(joined, today); years > 0 {
			events = append(events, CelebrationEvent{
				Type: celebrationWorkAnniversary,
				Content: notificationContent{
					Title: "🎊 Happy Work Anniversary!",
					Body:  fmt.Sprintf("🎉 Congratulations %s on completing %s with us!", emp.Name, pluralizeYears(years)),
				},
			})
		}
	}

	if married, ok := parseCelebrationDate(emp.MarriageDate); ok && sameDayAndMonth(married, today) {
		// 経過0年は年数の表記を省略する。未来日付（負の経過年数）は対象外。
		if years := yearsSince(married, today); years >= 0 {
			yearPhrase := ""
			if years > 0 {
				yearPhrase = fmt.Sprintf("%d year ", years)
			}
			events = append(events, CelebrationEvent{
				Type: celebrationMarriageAnniversary,
				Content: notificationContent{
					Title: "💍 Happy Marriage Anniversary!",
					Body:  fmt.Sprintf("💐 Wishing %s a very happy %sMarriage Anniversary!", emp.Name, yearPhrase),
				},
			})
		}
	}

	return events
}

// sendCelebrations は検出されたイベントを1件ずつ独立した通知として送信します
// 戻り値は送信に成功した件数です
func sendCelebrations(ctx context.Context, sender messageSender, uid string, events []CelebrationEvent) (int, error) {
	var sent int
	for _, event := range events {
		data := map[string]string{
			"type":  "celebration",
			"event": event.Type,
			"uid":   uid,
		}
		if err := sendToAllEmployees(ctx, sender, event.Content, data); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// RunCelebrationScan は全従業員を走査し、該当するお祝い通知を送信します
func RunCelebrationScan(ctx context.Context, now time.Time) (*CelebrationResult, error) {
	if firestoreClient == nil || messagingClient == nil {
		return nil, fmt.Errorf("firebase clients are not initialized")
	}

	iter := firestoreClient.Collection(usersCollectionName).Documents(ctx)
	defer iter.Stop()

	return runCelebrationScan(ctx, &firestoreEmployeeLister{users: iter}, messagingClient, now)
}

// runCelebrationScan はお祝いスキャンの本体です
// ユーザー単位の失敗は集計に記録して次のユーザーへ進み、全ユーザーが失敗した場合のみエラーを返します
func runCelebrationScan(ctx context.Context, lister employeeLister, sender messageSender, now time.Time) (*CelebrationResult, error) {
	log.Printf("INFO: Starting celebration scan for %s", now.Format(celebrationDateLayout))

	result := &CelebrationResult{}

	for {
		uid, emp, err := lister.NextEmployee()
		if err == iterator.Done {
			break
		}
		if errors.Is(err, errBadEmployeeDoc) {
			log.Printf("ERROR: Failed to parse user data for %s: %v", uid, err)
			result.UsersScanned++
			result.FailedUsers++
			continue
		}
		if err != nil {
			log.Printf("ERROR: Failed to iterate over users: %v", err)
			return result, err
		}

		result.UsersScanned++

		sent, err := sendCelebrations(ctx, sender, uid, detectCelebrations(emp, now))
		result.EventsSent += sent
		if err != nil {
			log.Printf("ERROR: Failed to send celebration notifications for user %s: %v", uid, err)
			result.FailedUsers++
		}
	}

	log.Printf("INFO: Celebration scan completed: %d users scanned, %d notifications sent, %d users failed",
		result.UsersScanned, result.EventsSent, result.FailedUsers)

	if result.UsersScanned > 0 && result.FailedUsers == result.UsersScanned {
		return result, fmt.Errorf("celebration scan failed for all %d users", result.FailedUsers)
	}
	return result, nil
}
