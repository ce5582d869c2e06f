package main

import (
	"context"
	"errors"
	"log"
	"strings"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// validateAuthHeader はAuthorizationヘッダーを検証してFirebase Auth Tokenを返します
func validateAuthHeader(ctx context.Context, authHeader string) (*auth.Token, error) {
	// "Bearer " プレフィックスを検証・削除
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, errors.New("invalid authorization header format")
	}
	idToken := parts[1]

	token, err := authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Printf("ERROR: Token validation failed: %v", err)
		return nil, err
	}

	return token, nil
}

// getEmployeeRecord は従業員ドキュメントをFirestoreから取得します
func getEmployeeRecord(ctx context.Context, uid string) (*EmployeeRecord, error) {
	doc, err := firestoreClient.Collection(usersCollectionName).Doc(uid).Get(ctx)
	if err != nil {
		return nil, err
	}

	var emp EmployeeRecord
	if err := doc.DataTo(&emp); err != nil {
		return nil, err
	}

	return &emp, nil
}

// isNotFound はFirestoreのNotFoundエラーかどうかを判定します
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
