package main

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Announcement は管理画面が作成するお知らせドキュメントの構造体です
// このシステムからは読み取り専用です
type Announcement struct {
	Category string `json:"category" firestore:"category"`
	Title    string `json:"title" firestore:"title"`
	Message  string `json:"message" firestore:"message"`
}

const (
	urgentAnnouncementTitle  = "🚨 Urgent Update"
	defaultAnnouncementTitle = "New Announcement"
)

// buildAnnouncementNotification はお知らせドキュメントから通知内容とデータペイロードを組み立てます
func buildAnnouncementNotification(a Announcement) (notificationContent, map[string]string) {
	title := defaultAnnouncementTitle
	if a.Category == "Urgent" {
		title = urgentAnnouncementTitle
	}

	content := notificationContent{
		Title: title,
		Body:  a.Title,
	}

	// messageが未設定でもデータペイロードには空文字で載せる
	data := map[string]string{
		"click_action": "FLUTTER_NOTIFICATION_CLICK",
		"message":      a.Message,
	}

	return content, data
}

// NotifyAnnouncementCreated は新規作成されたお知らせドキュメントを読み、全従業員へ通知を送信します
// 送信の失敗はログに記録するだけで、エラーとして返しません
func NotifyAnnouncementCreated(ctx context.Context, docID string) error {
	if docID == "" {
		log.Println("No document ID associated with the event")
		return nil
	}

	if firestoreClient == nil || messagingClient == nil {
		return errors.New("firebase clients are not initialized")
	}

	doc, err := firestoreClient.Collection(announcementsCollectionName).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			log.Printf("WARN: Announcement %s not found, skipping notification", docID)
			return nil
		}
		log.Printf("ERROR: Failed to get announcement %s: %v", docID, err)
		return err
	}

	var announcement Announcement
	if err := doc.DataTo(&announcement); err != nil {
		log.Printf("ERROR: Failed to parse announcement data for %s: %v", docID, err)
		return err
	}

	content, data := buildAnnouncementNotification(announcement)

	if err := sendToAllEmployees(ctx, messagingClient, content, data); err != nil {
		log.Printf("ERROR: Error sending notification: %v", err)
		return nil
	}

	log.Println("Notification sent successfully")
	return nil
}
