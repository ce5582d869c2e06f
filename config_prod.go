//go:build !local

package main

import "log"

// デフォルトのビルド（go build .）でビルドされる
func init() {
	// 本番用コレクション名を設定
	usersCollectionName = "users"
	announcementsCollectionName = "announcements"

	log.Println("========================================")
	log.Println("    RUNNING IN PRODUCTION MODE")
	log.Printf("    Users Collection: %s\n", usersCollectionName)
	log.Println("========================================")
}
