//go:build local

package main

import "fmt"

// ローカル実行時（go run --tags=local .）にのみビルドされる
func init() {
	// テスト用コレクション名を設定
	usersCollectionName = "users_test"
	announcementsCollectionName = "announcements_test"

	fmt.Println("========================================")
	fmt.Println("    RUNNING IN LOCAL MODE")
	fmt.Printf("    Users Collection: %s\n", usersCollectionName)
	fmt.Println("========================================")
}
