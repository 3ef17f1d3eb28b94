package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix  = "profile:%d"
	PostKeyPrefix     = "post:%d"
	PostsListKeyValue = "posts:list"
)

const (
	ProfileTTL   = 5 * time.Minute
	PostTTL      = 30 * time.Minute
	PostsListTTL = 1 * time.Minute
)

func ProfileKey(profileID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, profileID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostsListKey() string {
	return PostsListKeyValue
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProfile(ctx context.Context, profileID uint) {
	Invalidate(ctx, ProfileKey(profileID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, PostsListKey())
}

func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsListKey())
}
