package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"socialnet/internal/config"
	"socialnet/internal/models"
	"socialnet/internal/storage"

	"gorm.io/gorm"
)

func main() {
	// 简单命令行参数解析
	if len(os.Args) < 2 {
		fmt.Println("使用方法:")
		fmt.Println("  ./admin check-friendships - 扫描已接受但缺少好友关系记录的请求")
		fmt.Println("  ./admin repair-friendships - 为不一致的请求补建好友关系记录")
		fmt.Println("  ./admin show-user <userID> - 显示用户及其好友关系信息")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	checker := storage.NewGormConsistencyChecker(db)

	// 执行指定的命令
	switch os.Args[1] {
	case "check-friendships":
		checkFriendships(checker)

	case "repair-friendships":
		repairFriendships(checker)

	case "show-user":
		if len(os.Args) < 3 {
			log.Fatalf("需要指定用户ID")
		}
		userID, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("无效的用户ID: %v", err)
		}
		showUser(db, uint(userID))

	default:
		log.Fatalf("未知命令: %s", os.Args[1])
	}
}

func checkFriendships(checker storage.ConsistencyChecker) {
	pairs, err := checker.FindPartialAccepts(context.Background())
	if err != nil {
		log.Fatalf("扫描失败: %v", err)
	}

	if len(pairs) == 0 {
		fmt.Println("未发现不一致：所有已接受的请求都有对应的好友关系记录。")
		return
	}

	fmt.Printf("发现 %d 条不一致的已接受请求:\n", len(pairs))
	fmt.Println("--------------------------------------")
	for i, pair := range pairs {
		fmt.Printf("#%d 请求ID: %d, 发送者: %d, 接收者: %d\n",
			i+1, pair.RequestID, pair.RequesterUserID, pair.RecipientUserID)
	}
	fmt.Println("运行 repair-friendships 可补建缺失的好友关系记录。")
}

func repairFriendships(checker storage.ConsistencyChecker) {
	repaired, err := checker.RepairPartialAccepts(context.Background())
	if err != nil {
		log.Fatalf("修复失败 (已修复 %d 条): %v", repaired, err)
	}
	fmt.Printf("修复流程完成，共补建 %d 条好友关系记录。\n", repaired)
}

func showUser(db *gorm.DB, userID uint) {
	ctx := context.Background()
	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	friendReqRepo := storage.NewGormFriendRequestRepository(db)

	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Fatalf("查找用户失败: %v", err)
	}

	fmt.Printf("用户 %d 信息:\n", userID)
	fmt.Println("--------------------------------------")
	fmt.Printf("用户名: %s\n", user.Username)
	fmt.Printf("邮箱: %s\n", user.Email)
	fmt.Printf("姓名: %s %s\n", user.FirstName, user.LastName)
	fmt.Printf("注册时间: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))

	friendIDs, err := friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		fmt.Printf("获取好友列表失败: %v\n", err)
	} else {
		fmt.Printf("好友数量: %d\n", len(friendIDs))
		if len(friendIDs) > 0 {
			fmt.Printf("好友ID: %v\n", friendIDs)
		}
	}

	pending, err := friendReqRepo.GetPendingRequestsForUser(ctx, userID)
	if err != nil {
		fmt.Printf("获取待处理请求失败: %v\n", err)
	} else {
		fmt.Printf("待处理的好友请求: %d\n", len(pending))
		for _, req := range pending {
			fmt.Printf("  请求ID: %d, 来自用户: %d, 状态: %s\n",
				req.ID, req.RequesterUserID, models.FriendRequestStatusPending)
		}
	}
}
