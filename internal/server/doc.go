// Package server は、静的ファイルを配信するHTTPサーバーを管理します。
//
// このパッケージは、ポートの選択、HTTPサーバーの起動と停止、
// 静的ファイルの配信、CORSヘッダーの付与を担当します。
//
// 責務:
//   - 候補ポートを順に試してリッスンする
//   - ルートディレクトリ配下のファイルを配信する
//   - すべてのレスポンスにCORSヘッダーを付ける
//   - シグナルを受けてサーバーを停止する
//
// 仕様:
//   - ルーティングとミドルウェアは gin を使用
//   - ファイルの解決は net/http の FileServer に任せる
//   - ルートディレクトリは生成時に渡し、以後変更しない
//   - カレントディレクトリは変更しない
package server
